package emotion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Label
	}{
		{"joy", Joy},
		{" Longing ", Longing},
		{"기쁨", Joy},
		{"화남", Anger},
		{"설렘", Longing},
		{"", Bashful},
		{"melancholy", Bashful},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Parse(tt.in), "Parse(%q)", tt.in)
	}
}

func TestScaleRoundTrip(t *testing.T) {
	for n := 1; n <= 10; n++ {
		assert.Equal(t, n, ToScale10(FromScale10(n)), "round trip %d", n)
	}
	assert.Equal(t, 0.0, FromScale10(-3))
	assert.Equal(t, 1.0, FromScale10(42))
	assert.Equal(t, 1, ToScale10(-1))
	assert.Equal(t, 10, ToScale10(7))
}

func TestResponse(t *testing.T) {
	assert.Equal(t, "너무 좋아요!", Response(Joy, 0.9))
	assert.Equal(t, "😊", Response(Joy, 0.5))
	assert.Equal(t, "정말 기뻐요!", Response(Joy, 0.2))
}

func TestLookupUnknown(t *testing.T) {
	d, ok := Lookup("nope")
	assert.False(t, ok)
	assert.Equal(t, Bashful, d.Label)
}
