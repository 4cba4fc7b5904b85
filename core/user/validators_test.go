package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckPassword(t *testing.T) {
	tests := []struct {
		name    string
		pwd     string
		attrs   []string
		wantTag string
	}{
		{name: "too short", pwd: "Ab1!", wantTag: pwdMinLenTag},
		{name: "whitespace", pwd: "Abcd 1234!", wantTag: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", wantTag: pwdNotAllNumTag},
		{name: "no special", pwd: "Abcd12345", wantTag: pwdComplexityTag},
		{name: "no upper", pwd: "abcd1234!", wantTag: pwdComplexityTag},
		{name: "similar to email", pwd: "Amina.Farah1", attrs: []string{"Amina", "amina.farah1@school.so"}, wantTag: pwdAttrSimTag},
		{name: "valid", pwd: "Dug$4-Tribe9", attrs: []string{"Amina", "amina@school.so"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTag, checkPassword(tt.pwd, tt.attrs...))
		})
	}
}
