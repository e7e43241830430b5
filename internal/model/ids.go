package model

import "github.com/google/uuid"

// assignID fills a zero primary key. Postgres would do it with gen_random_uuid(),
// but the id must be known before the INSERT returns so dependent rows can be
// written in the same transaction on any dialect.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
