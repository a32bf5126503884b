package auth

import (
	"testing"

	"github.com/dmitrijs2005/senas-auth/internal/common"
	"github.com/stretchr/testify/assert"
)

func TestParseBearer(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "valid", header: "Bearer abc.def.ghi", want: "abc.def.ghi"},
		{name: "lowercase scheme", header: "bearer tok", want: "tok"},
		{name: "extra spaces", header: "Bearer   tok  ", want: "tok"},
		{name: "empty", header: "", wantErr: common.ErrMissingAuthorization},
		{name: "no token", header: "Bearer", wantErr: common.ErrMalformedAuthorization},
		{name: "blank token", header: "Bearer ", wantErr: common.ErrMalformedAuthorization},
		{name: "basic scheme", header: "Basic dXNlcjpwdw==", wantErr: common.ErrMalformedAuthorization},
		{name: "bare token", header: "abc.def.ghi", wantErr: common.ErrMalformedAuthorization},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBearer(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
