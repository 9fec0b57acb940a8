package service

import (
	"strconv"
	"strings"

	"github.com/UkralStul/blog-platform/internal/domain"
)

// ParsePageQuery собирает параметры страницы из строки запроса.
// Пустые и нечисловые значения заменяются значениями по умолчанию, числа меньше 1
// отклоняются, limit ограничивается domain.MaxPageLimit. Тег сравнивается
// как есть, с учетом регистра и пробелов.
func ParsePageQuery(pageRaw, limitRaw, tag string) (domain.PageQuery, error) {
	q := domain.PageQuery{
		Page:  domain.DefaultPage,
		Limit: domain.DefaultLimit,
		Tag:   tag,
	}

	var fields []domain.FieldError
	if page, err := strconv.Atoi(strings.TrimSpace(pageRaw)); err == nil {
		if page < 1 {
			fields = append(fields, domain.FieldError{Field: "page", Message: "must be a positive integer"})
		} else {
			q.Page = page
		}
	}
	if limit, err := strconv.Atoi(strings.TrimSpace(limitRaw)); err == nil {
		if limit < 1 {
			fields = append(fields, domain.FieldError{Field: "limit", Message: "must be a positive integer"})
		} else {
			q.Limit = min(limit, domain.MaxPageLimit)
		}
	}
	if len(fields) > 0 {
		return domain.PageQuery{}, domain.NewValidationError(fields...)
	}
	return q, nil
}
