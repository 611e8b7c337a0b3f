package utils

import (
	"context"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
)

/* DB fetching */

// FetchModel fetches one record scoped to its owner. Every lookup goes
// through the owner filter so an id belonging to another user behaves
// exactly like a missing id.
// (may return ErrorRecordNotFound)
func FetchModel[T any](ctx context.Context, userId string, id string, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// check if id exists for this user, return ErrorRecordNotFound otherwise
func ValidateResourceId[T any](ctx context.Context, userId string, id string) error {

	count, err := ResourceCountWhere[T](ctx, userId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

// count records, using WHERE user_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, userId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	if userId != "" {
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
