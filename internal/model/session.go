package model

import "time"

// SessionKey is the only identity a session has.
type SessionKey struct {
	Station string
	Start   time.Time
}

// Session holds records of one station captured within the tolerance window,
// ordered by (timestamp, filename).
type Session struct {
	Key     SessionKey
	Records []FileRecord
}

func (s Session) End() time.Time {
	if len(s.Records) == 0 {
		return s.Key.Start
	}
	return s.Records[len(s.Records)-1].Timestamp
}
