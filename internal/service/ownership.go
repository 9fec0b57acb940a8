package service

import "github.com/UkralStul/blog-platform/internal/domain"

// AuthorizeMutation разрешает изменение только автору ресурса.
// Оба id сравниваются в канонической форме.
func AuthorizeMutation(callerID, authorID string) error {
	if domain.SameID(callerID, authorID) {
		return nil
	}
	return domain.ErrForbidden
}
