package main

import "time"

type keygenCmd struct {
	Algorithm string `arg:"-a,--algorithm" default:"Kyber-768" help:"RSA-2048, Kyber-512, Kyber-768 or Kyber-1024"`
	Out       string `arg:"-o,--out" help:"write a passphrase-protected identity file instead of printing the keypair"`
}

type createCmd struct {
	Participants   []string `arg:"positional,required" help:"participant public keys, or @path to read one from an identity file"`
	Algorithm      string   `arg:"-a,--algorithm" default:"Kyber-768"`
	ConfigStorage  string   `arg:"--config-storage" default:"file" help:"message or file"`
	MessageStorage string   `arg:"--message-storage" default:"message" help:"message or file"`
	NoParticipants bool     `arg:"--no-participant-topic" help:"do not keep participants in a side topic"`
	Metadata       string   `arg:"--metadata" help:"opaque metadata encrypted with the topic data"`
}

type submitCmd struct {
	Topic      string `arg:"positional,required"`
	Message    string `arg:"positional" help:"message text; read from stdin when omitted"`
	Generation int    `arg:"--generation" default:"-1" help:"encrypt under an older generation"`
}

type readCmd struct {
	Topic    string `arg:"positional,required"`
	Sequence int64  `arg:"positional,required"`
}

type addCmd struct {
	Topic          string `arg:"positional,required"`
	PublicKey      string `arg:"positional,required" help:"public key, or @path to an identity file"`
	ForwardSecrecy bool   `arg:"--forward-secrecy" help:"rotate the key before adding"`
}

type rotateCmd struct {
	Topic   string   `arg:"positional,required"`
	Exclude []string `arg:"--exclude,separate" help:"public key, or @path, to revoke"`
}

type topicCmd struct {
	Topic string `arg:"positional,required"`
}

type watchCmd struct {
	Topic   string        `arg:"positional,required"`
	From    int64         `arg:"--from" help:"first sequence number; default is new messages only"`
	Timeout time.Duration `arg:"--timeout" help:"stop after this long; default is to run until interrupted"`
}

type cliArgs struct {
	Keygen       *keygenCmd `arg:"subcommand:keygen" help:"generate a participant keypair"`
	Create       *createCmd `arg:"subcommand:create" help:"create an encrypted topic"`
	Submit       *submitCmd `arg:"subcommand:submit" help:"encrypt and submit a message"`
	Read         *readCmd   `arg:"subcommand:read" help:"read and decrypt a message"`
	Add          *addCmd    `arg:"subcommand:add" help:"add a participant"`
	Rotate       *rotateCmd `arg:"subcommand:rotate" help:"rotate the topic key"`
	Participants *topicCmd  `arg:"subcommand:participants" help:"list current participants"`
	Migrate      *topicCmd  `arg:"subcommand:migrate" help:"move the configuration into a ledger file"`
	Generation   *topicCmd  `arg:"subcommand:generation" help:"print the current generation"`
	Watch        *watchCmd  `arg:"subcommand:watch" help:"print messages as they arrive"`

	Profile    string `arg:"-p,--profile,env:CRYPTOTOPIC_PROFILE" default:"cryptotopic.yaml" help:"ledger profile"`
	Identity   string `arg:"-i,--identity,env:CRYPTOTOPIC_IDENTITY" help:"identity file; overrides the profile"`
	Passphrase string `arg:"--passphrase,env:CRYPTOTOPIC_PASSPHRASE" help:"identity file passphrase"`
	Verbose    bool   `arg:"-v,--verbose"`
}

func (cliArgs) Description() string {
	return "cryptotopic reads and writes end-to-end encrypted ledger topics.\n"
}
