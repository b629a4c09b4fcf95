package wire

import (
	"fmt"
	"strings"
)

// Configuration is the ordered, append-only list of a topic's generations,
// oldest first.
type Configuration struct {
	Generations []*Generation
}

// segments splits a configuration message on ',' and drops empty segments.
func segments(message string) []string {
	parts := strings.Split(message, generationSeparator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseConfiguration decodes every generation in message and checks each
// against the slot count invariant.
func ParseConfiguration(message string) (*Configuration, error) {
	segs := segments(message)
	if len(segs) == 0 {
		return nil, fmt.Errorf("%w: no generations", ErrMalformedConfiguration)
	}

	cfg := &Configuration{Generations: make([]*Generation, 0, len(segs))}
	for i, seg := range segs {
		gen, err := DecodeGeneration(seg)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", i, err)
		}
		if err := gen.Validate(); err != nil {
			return nil, fmt.Errorf("generation %d: %w", i, err)
		}
		cfg.Generations = append(cfg.Generations, gen)
	}
	return cfg, nil
}

// String encodes the configuration.
func (c *Configuration) String() string {
	var message string
	for _, gen := range c.Generations {
		message = AppendGeneration(message, gen)
	}
	return message
}

// Current returns the index of the newest generation.
func (c *Configuration) Current() int {
	return len(c.Generations) - 1
}

// At returns generation version.
func (c *Configuration) At(version int) (*Generation, error) {
	if version < 0 || version >= len(c.Generations) {
		return nil, fmt.Errorf("%w: version %d of %d", ErrGenerationNotFound, version, len(c.Generations))
	}
	return c.Generations[version], nil
}

// AppendGeneration adds gen after the existing generations. It never
// modifies what message already holds.
func AppendGeneration(message string, gen *Generation) string {
	if message == "" {
		return gen.Encode()
	}
	return message + generationSeparator + gen.Encode()
}

// CurrentGenerationIndex returns the 0-based index of the newest generation,
// or -1 for an empty message.
func CurrentGenerationIndex(message string) int {
	return len(segments(message)) - 1
}

// GenerationAt decodes only generation version of message.
func GenerationAt(message string, version int) (*Generation, error) {
	segs := segments(message)
	if version < 0 || version >= len(segs) {
		return nil, fmt.Errorf("%w: version %d of %d", ErrGenerationNotFound, version, len(segs))
	}
	return DecodeGeneration(segs[version])
}

// GenerationSuffix encodes gen for appending to a non-empty configuration.
func GenerationSuffix(gen *Generation) string {
	return generationSeparator + gen.Encode()
}
