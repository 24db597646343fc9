package repository

import "time"

// Все таймстемпы хранилища в UTC, отображение в локальном времени - забота UI
func nowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
