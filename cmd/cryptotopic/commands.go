package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	cryptotopic "github.com/cryptotopic/client-go"
)

// KeygenOutput is printed by keygen. PrivateKey is set only when no
// identity file was written.
type KeygenOutput struct {
	Algorithm  string `json:"algorithm"`
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
	Identity   string `json:"identity,omitempty"`
}

// MessageOutput is one line of watch output.
type MessageOutput struct {
	SequenceNumber int64  `json:"sequenceNumber"`
	Generation     int    `json:"generation"`
	Message        string `json:"message"`
}

func runKeygen(cmd *keygenCmd, passphrase string, cfg *Config) error {
	alg, err := cryptotopic.ParseAlgorithm(cmd.Algorithm)
	if err != nil {
		return err
	}
	kp, err := cryptotopic.GenerateKeyPair(alg)
	if err != nil {
		return fmt.Errorf("generate keypair: %w", err)
	}

	out := KeygenOutput{Algorithm: alg.String(), PublicKey: kp.PublicKey}
	if cmd.Out == "" {
		out.PrivateKey = kp.PrivateKey
		return writeJSON(cfg.Stdout, out)
	}

	if passphrase == "" {
		return errors.New("an identity file needs a passphrase: pass --passphrase or set CRYPTOTOPIC_PASSPHRASE")
	}
	if err := kp.ExportToFile(cmd.Out, passphrase); err != nil {
		return err
	}
	out.Identity = cmd.Out
	return writeJSON(cfg.Stdout, out)
}

func runCreate(ctx context.Context, client *cryptotopic.Client, cmd *createCmd, cfg *Config) error {
	alg, err := cryptotopic.ParseAlgorithm(cmd.Algorithm)
	if err != nil {
		return err
	}
	participants, err := resolveKeys(cmd.Participants)
	if err != nil {
		return err
	}

	opts := []cryptotopic.CreateOption{
		cryptotopic.WithConfigurationStorage(cryptotopic.StorageMedium(cmd.ConfigStorage)),
		cryptotopic.WithMessageStorage(cryptotopic.StorageMedium(cmd.MessageStorage)),
	}
	if !cmd.NoParticipants {
		opts = append(opts, cryptotopic.WithStoredParticipants())
	}
	if cmd.Metadata != "" {
		opts = append(opts, cryptotopic.WithMetadata([]byte(cmd.Metadata)))
	}

	topicID, err := client.CreateTopic(ctx, participants, alg, opts...)
	if err != nil {
		return fmt.Errorf("create topic: %w", err)
	}
	return writeJSON(cfg.Stdout, map[string]string{"topicId": topicID})
}

func runSubmit(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *submitCmd, cfg *Config) error {
	message := []byte(cmd.Message)
	if cmd.Message == "" {
		data, err := io.ReadAll(cfg.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		message = data
	}

	var opts []cryptotopic.SubmitOption
	if cmd.Generation >= 0 {
		opts = append(opts, cryptotopic.WithGenerationVersion(cmd.Generation))
	}
	seq, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).SubmitMessage(ctx, message, opts...)
	if err != nil {
		return fmt.Errorf("submit message: %w", err)
	}
	return writeJSON(cfg.Stdout, map[string]int64{"sequenceNumber": seq})
}

func runRead(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *readCmd, cfg *Config) error {
	plaintext, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).GetMessage(ctx, cmd.Sequence)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}
	if _, err := cfg.Stdout.Write(plaintext); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func runAdd(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *addCmd, cfg *Config) error {
	key, err := resolveKey(cmd.PublicKey)
	if err != nil {
		return err
	}
	if err := client.OpenTopic(cmd.Topic, identity.PrivateKey).AddParticipant(ctx, key, cmd.ForwardSecrecy); err != nil {
		return fmt.Errorf("add participant: %w", err)
	}
	return writeJSON(cfg.Stdout, map[string]bool{"success": true})
}

func runRotate(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *rotateCmd, cfg *Config) error {
	exclude, err := resolveKeys(cmd.Exclude)
	if err != nil {
		return err
	}
	topic := client.OpenTopic(cmd.Topic, identity.PrivateKey)
	if err := topic.RotateEncryptionKey(ctx, cryptotopic.ExcludeParticipants(exclude...)); err != nil {
		return fmt.Errorf("rotate key: %w", err)
	}
	gen, err := topic.CurrentGeneration(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]int{"generation": gen})
}

func runParticipants(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *topicCmd, cfg *Config) error {
	keys, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).GetParticipants(ctx)
	if err != nil {
		return fmt.Errorf("get participants: %w", err)
	}
	return writeJSON(cfg.Stdout, map[string][]string{"participants": keys})
}

func runMigrate(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *topicCmd, cfg *Config) error {
	fileID, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).MigrateConfigurationToFile(ctx)
	if err != nil {
		return fmt.Errorf("migrate configuration: %w", err)
	}
	return writeJSON(cfg.Stdout, map[string]string{"fileId": fileID})
}

func runGeneration(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *topicCmd, cfg *Config) error {
	gen, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).CurrentGeneration(ctx)
	if err != nil {
		return err
	}
	return writeJSON(cfg.Stdout, map[string]int{"generation": gen})
}

func runWatch(ctx context.Context, client *cryptotopic.Client, identity *cryptotopic.KeyPair, cmd *watchCmd, cfg *Config) error {
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	var opts []cryptotopic.WatchOption
	if cmd.From > 0 {
		opts = append(opts, cryptotopic.WithStartSequence(cmd.From))
	}
	messages, err := client.OpenTopic(cmd.Topic, identity.PrivateKey).Subscribe(ctx, opts...)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	for msg := range messages {
		if err := writeJSON(cfg.Stdout, MessageOutput{
			SequenceNumber: msg.SequenceNumber,
			Generation:     msg.Generation,
			Message:        string(msg.Plaintext),
		}); err != nil {
			return err
		}
	}
	return nil
}
