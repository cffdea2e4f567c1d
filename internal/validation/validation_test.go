package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zxsgit/internal/apperr"
)

type signup struct {
	Name    string `validate:"notblank" msg:"Name is required"`
	Email   string `validate:"emailshape" msg:"Invalid email"`
	Pass    string `validate:"notblank"`
	Confirm string `validate:"eqfield=Pass" msg:"Passwords must match"`
}

func TestStruct(t *testing.T) {
	ok := signup{Name: "Ann", Email: "ann@x.io", Pass: "pw", Confirm: "pw"}
	require.NoError(t, Struct(ok))

	cases := []struct {
		name string
		in   signup
		msg  string
	}{
		{"blank name", signup{Name: "  ", Email: "a@b.c", Pass: "p", Confirm: "p"}, "Name is required"},
		{"bad email", signup{Name: "A", Email: "a@b", Pass: "p", Confirm: "p"}, "Invalid email"},
		{"no msg tag", signup{Name: "A", Email: "a@b.c", Pass: "", Confirm: ""}, "Pass is required"},
		{"mismatch", signup{Name: "A", Email: "a@b.c", Pass: "p", Confirm: "q"}, "Passwords must match"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(&tc.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tc.msg, apperr.Message(err))
		})
	}
}

func TestIsEmail(t *testing.T) {
	assert.True(t, IsEmail("admin@zxsgit.local"))
	assert.True(t, IsEmail("  a@b.co "))
	assert.False(t, IsEmail("a b@c.d"))
	assert.False(t, IsEmail("nobody"))
	assert.False(t, IsEmail("x@y"))
}
