package models

import (
	"encoding/json"
	"net/http"

	"zxsgit/internal/apperr"
)

// Envelope is embedded in every API response.
type Envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteFail answers {ok:false, message}.
func WriteFail(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, Envelope{OK: false, Message: msg})
}

// WriteError classifies err and answers with the matching status.
func WriteError(w http.ResponseWriter, err error) {
	WriteFail(w, apperr.HTTPStatus(apperr.KindOf(err)), apperr.Message(err))
}

// Responses.

type IndexResponse struct {
	Envelope
	Version   string   `json:"version"`
	Endpoints []string `json:"endpoints"`
}

type SessionResponse struct {
	Envelope
	Session Session `json:"session"`
}

type UsersResponse struct {
	Envelope
	Users []User `json:"users"`
}

type UserResponse struct {
	Envelope
	User User `json:"user"`
}

type TodosResponse struct {
	Envelope
	Todos []Todo `json:"todos"`
}

type CompaniesResponse struct {
	Envelope
	Companies []Company `json:"companies"`
}

type CompanyResponse struct {
	Envelope
	Company Company `json:"company"`
}

// Requests. The msg tag is the user-facing text reported when the field fails validation.

type RegisterRequest struct {
	Name     string `json:"name" validate:"notblank" msg:"All fields are required"`
	Email    string `json:"email" validate:"notblank" msg:"All fields are required"`
	Password string `json:"password" validate:"notblank" msg:"All fields are required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"notblank" msg:"Email and password required"`
	Password string `json:"password" validate:"notblank" msg:"Email and password required"`
}

// UserUpdateRequest carries admin and self edits. Empty fields keep the stored value.
type UserUpdateRequest struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty" validate:"omitempty,emailshape" msg:"Invalid email"`
	Role     Role   `json:"role,omitempty" validate:"omitempty,oneof=admin member" msg:"Invalid role"`
	Password string `json:"password,omitempty"`
}

// TodosRequest keeps the raw value so a non-array can be told apart from an empty list.
type TodosRequest struct {
	Todos json.RawMessage `json:"todos"`
}

// List decodes the todos array, reporting false when the field is not an array.
func (r TodosRequest) List() ([]Todo, bool) {
	if len(r.Todos) == 0 || r.Todos[0] != '[' {
		return nil, false
	}
	var todos []Todo
	if err := json.Unmarshal(r.Todos, &todos); err != nil {
		return nil, false
	}
	if todos == nil {
		todos = []Todo{}
	}
	return todos, true
}

type SaveTodosRequest struct {
	Todos []Todo `json:"todos"`
}

type SyncUsersRequest struct {
	Users []StoredUser `json:"users"`
}
