package auth

import "fileboard/internal/models"

// CanDelete решает, может ли пользователь удалить файл:
// владелец - всегда; проверенный пользователь - файл непроверенного владельца.
// Статус владельца берется из снимка в записи, а не из текущего профиля.
func CanDelete(requester models.Identity, rec models.FileRecord) bool {
	if requester.Username == rec.Owner {
		return true
	}
	return requester.Verified && !rec.OwnerVerified
}
