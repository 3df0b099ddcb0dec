package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// CategoryPattern определяет допустимый формат категории жалобы
// Строчные латинские буквы, цифры, '-' и '_', первая буква. Длина: 2-32 символа
var CategoryPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{1,31}$`)

const (
	// MaxTitleLen максимальная длина заголовка в символах
	MaxTitleLen = 200
	// MaxDescriptionLen максимальная длина описания
	MaxDescriptionLen = 5000
	// MaxLocationLen максимальная длина места происшествия
	MaxLocationLen = 200
	// MaxAttachments максимальное число вложений у одной жалобы
	MaxAttachments = 10
)

// ValidateTitle проверяет, что заголовок не пустой и не длиннее MaxTitleLen
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}
	return validateLength("title", title, MaxTitleLen)
}

// ValidateCategory проверяет формат категории. Пустая категория допустима.
func ValidateCategory(category string) error {
	if category == "" {
		return nil
	}
	if !CategoryPattern.MatchString(category) {
		return errors.New("category can only contain lowercase letters (a-z), numbers (0-9), '-' and '_' (2-32 characters)")
	}
	return nil
}

// ValidateDescription проверяет длину описания
func ValidateDescription(description string) error {
	return validateLength("description", description, MaxDescriptionLen)
}

// ValidateLocation проверяет длину места происшествия
func ValidateLocation(location string) error {
	return validateLength("location", location, MaxLocationLen)
}

// ValidateAttachments проверяет число вложений и что ссылки не пустые
func ValidateAttachments(refs []string) error {
	if len(refs) > MaxAttachments {
		return fmt.Errorf("at most %d attachments are allowed", MaxAttachments)
	}
	for i, ref := range refs {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("attachment %d is empty", i+1)
		}
	}
	return nil
}

// validateLength считает символы после NFC нормализации
func validateLength(field, value string, limit int) error {
	if utf8.RuneCountInString(norm.NFC.String(value)) > limit {
		return fmt.Errorf("%s must not exceed %d characters", field, limit)
	}
	return nil
}
