package domain

// RoomID is an opaque room identifier chosen by clients at connect time.
type RoomID string

func (id RoomID) String() string { return string(id) }
