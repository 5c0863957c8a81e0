package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHotelFields(t *testing.T) {
	h := Hotel{
		ID:       1,
		Location: Str("New York"),
		Title:    Str("Test Hotel"),
		HotelID:  Int(123),
		Price:    Float(200),
		Rating:   Float(4.5),
		Address:  Str(""),
		RoomType: Str("Deluxe Suite"),
	}

	f := h.Fields()
	assert.Equal(t, "1", f[FieldID])
	assert.Equal(t, "New York", f[FieldLocation])
	assert.Equal(t, "123", f[FieldHotelID])
	assert.Equal(t, "200", f[FieldPrice])
	assert.Equal(t, "4.5", f[FieldRating])
	assert.NotContains(t, f, FieldAddress, "empty strings are absent")
	assert.NotContains(t, f, FieldLatitude)
}

func TestHotelKey(t *testing.T) {
	key, ok := Hotel{HotelID: Int(42)}.Key()
	assert.True(t, ok)
	assert.Equal(t, int64(42), key)

	_, ok = Hotel{}.Key()
	assert.False(t, ok)

	_, ok = Hotel{HotelID: Int(0)}.Key()
	assert.False(t, ok)
}
