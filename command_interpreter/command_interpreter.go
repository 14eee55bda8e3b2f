package command_interpreter

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"voice-drive/drive_state"
)

type keyword struct {
	phrase  string
	command drive_state.Command
}

// keywords are checked in this order and the first one found wins, so
// "forward then backward" drives forward.
var keywords = []keyword{
	{"forward", drive_state.Forward},
	{"backward", drive_state.Backward},
	{"left", drive_state.TurnLeft},
	{"right", drive_state.TurnRight},
	{"stop", drive_state.Stop},
}

type interpreterImpl struct {
	keywords []keyword
}

type Config struct {
	// Synonyms maps extra phrases to command names. They are only consulted
	// when none of the built-in keywords matched.
	Synonyms map[string]string
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	all := make([]keyword, len(keywords), len(keywords)+len(cfg.Synonyms))
	copy(all, keywords)

	phrases := make([]string, 0, len(cfg.Synonyms))
	for phrase := range cfg.Synonyms {
		phrases = append(phrases, phrase)
	}
	sort.Strings(phrases)

	for _, phrase := range phrases {
		cmd, err := drive_state.ParseCommand(cfg.Synonyms[phrase])
		if err != nil {
			return nil, fmt.Errorf("synonym %q: %w", phrase, err)
		}

		normalized := normalize(phrase)
		if normalized == "" {
			return nil, fmt.Errorf("synonym %q is empty", phrase)
		}

		all = append(all, keyword{phrase: normalized, command: cmd})
	}

	return &interpreterImpl{keywords: all}, nil
}

func (i *interpreterImpl) Interpret(text string) (drive_state.Command, bool) {
	normalized := normalize(text)
	if normalized == "" {
		return 0, false
	}

	for _, kw := range i.keywords {
		if strings.Contains(normalized, kw.phrase) {
			return kw.command, true
		}
	}

	return 0, false
}

// normalize lowercases text and keeps only letters, digits and single spaces.
func normalize(text string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}

		if unicode.IsSpace(r) {
			return ' '
		}

		return -1
	}, text)

	return strings.Join(strings.Fields(cleaned), " ")
}
