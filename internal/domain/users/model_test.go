package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		u    *User
		want string
	}{
		{"nil", nil, ""},
		{"full", &User{FirstName: "Анна", LastName: "Петрова", Company: "Ромашка"}, "Анна Петрова (Ромашка)"},
		{"username only", &User{Username: "anna"}, "@anna"},
		{"company only", &User{Company: "Ромашка"}, "Ромашка"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.u.DisplayName())
		})
	}
	assert.False(t, (&User{}).Registered())
	assert.True(t, (&User{Company: "X"}).Registered())
}
