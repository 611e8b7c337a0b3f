package utils

import (
	"reflect"

	"bitbucket.org/mmdatafocus/wealth_backend/config"
)

/* generic functions */

func GetTypeName[T any]() string {
	var v T
	typeOfT := reflect.TypeOf(v)
	return typeOfT.Name()
}

/* Redis */

// store object list under TypeList:$user_id
func StoreRedisList[T any](obj any, userId string) error {
	key := GetTypeName[T]() + "List:" + userId
	return config.SetRedisObject(key, &obj, 0)
}

// retrieve a list; returns nil if does not exist
func RetrieveRedisList[T any](userId string) ([]*T, error) {
	key := GetTypeName[T]() + "List:" + userId

	var result []*T
	exists, err := config.GetRedisObject(key, &result)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return result, nil
}

// clear list, TypeList:$user_id
func RemoveRedisList[T any](userId string) error {
	var key string = GetTypeName[T]() + "List:" + userId
	return config.RemoveRedisKey(key)
}

/* view staleness signals */

// MarkDashboardStale drops the cached dashboard view for the user. The
// presentation layer rebuilds it on next read.
func MarkDashboardStale(userId string) {
	_ = config.RemoveRedisKey("Dashboard:" + userId)
}

// MarkAccountStale drops the cached per-account view.
func MarkAccountStale(accountId string) {
	_ = config.RemoveRedisKey("AccountView:" + accountId)
}
