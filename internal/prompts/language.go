package prompts

import (
	"fmt"
	"strings"

	"docqa/internal/models"
)

// Language is an output language code.
type Language string

const (
	Turkish Language = "tr"
	English Language = "en"
)

var languageNames = map[Language]string{
	Turkish: "Turkish",
	English: "English",
}

// ParseLanguage validates a language code.
func ParseLanguage(code string) (Language, error) {
	lang := Language(strings.ToLower(strings.TrimSpace(code)))
	if _, ok := languageNames[lang]; !ok {
		return "", fmt.Errorf("%w: unsupported language %q", models.ErrInvalidArgument, code)
	}
	return lang, nil
}

func (l Language) String() string { return string(l) }
