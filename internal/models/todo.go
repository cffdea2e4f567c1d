package models

import "strings"

type Todo struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Done      bool   `json:"done"`
	CreatedAt Millis `json:"createdAt"`
	UserEmail string `json:"userEmail"`
	UserName  string `json:"userName"`
}

func (t Todo) RecordID() string   { return t.ID }
func (t Todo) NaturalKey() string { return "" }
func (t Todo) Created() int64     { return int64(t.CreatedAt) }

// EditableBy: the creator or any admin.
func (t Todo) EditableBy(s Session) bool {
	return s.IsAdmin() || (s.Email != "" && strings.EqualFold(t.UserEmail, s.Email))
}
