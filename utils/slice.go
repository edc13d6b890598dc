package utils

import "github.com/google/uuid"

// UniqueUUID removes duplicate values from a slice of uuids, keeping order.
func UniqueUUID(slice []uuid.UUID) []uuid.UUID {
	keys := make(map[uuid.UUID]bool)
	list := []uuid.UUID{}
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}
