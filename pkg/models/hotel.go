package models

import "strconv"

// Field names a hotel exposes to prompt templates.
const (
	FieldID            = "id"
	FieldLocation      = "location"
	FieldPropertyTitle = "property_title"
	FieldHotelID       = "hotel_id"
	FieldPrice         = "price"
	FieldRating        = "rating"
	FieldAddress       = "address"
	FieldLatitude      = "latitude"
	FieldLongitude     = "longitude"
	FieldRoomType      = "room_type"
)

// HotelFields lists every field name in source column order.
var HotelFields = []string{
	FieldID, FieldLocation, FieldPropertyTitle, FieldHotelID, FieldPrice,
	FieldRating, FieldAddress, FieldLatitude, FieldLongitude, FieldRoomType,
}

// Hotel is one row of the source hotels table. Every field except ID may be
// absent.
type Hotel struct {
	ID        int64    `json:"id"`
	Location  *string  `json:"location,omitempty"`
	Title     *string  `json:"property_title,omitempty"`
	HotelID   *int64   `json:"hotel_id,omitempty"`
	Price     *float64 `json:"price,omitempty"`
	Rating    *float64 `json:"rating,omitempty"`
	Address   *string  `json:"address,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	RoomType  *string  `json:"room_type,omitempty"`
}

// Key returns the external hotel id used as the destination key.
func (h Hotel) Key() (int64, bool) {
	if h.HotelID == nil || *h.HotelID == 0 {
		return 0, false
	}
	return *h.HotelID, true
}

// Fields returns the literal value of every present field. Empty strings and
// zero numbers count as absent, matching how the source data marks unknowns.
func (h Hotel) Fields() map[string]string {
	out := map[string]string{FieldID: strconv.FormatInt(h.ID, 10)}
	putStr(out, FieldLocation, h.Location)
	putStr(out, FieldPropertyTitle, h.Title)
	if h.HotelID != nil && *h.HotelID != 0 {
		out[FieldHotelID] = strconv.FormatInt(*h.HotelID, 10)
	}
	putFloat(out, FieldPrice, h.Price)
	putFloat(out, FieldRating, h.Rating)
	putStr(out, FieldAddress, h.Address)
	putFloat(out, FieldLatitude, h.Latitude)
	putFloat(out, FieldLongitude, h.Longitude)
	putStr(out, FieldRoomType, h.RoomType)
	return out
}

func putStr(m map[string]string, k string, v *string) {
	if v != nil && *v != "" {
		m[k] = *v
	}
}

func putFloat(m map[string]string, k string, v *float64) {
	if v != nil && *v != 0 {
		m[k] = strconv.FormatFloat(*v, 'f', -1, 64)
	}
}

// Str returns a pointer to s. Handy for building hotels in code and tests.
func Str(s string) *string { return &s }

// Int returns a pointer to n.
func Int(n int64) *int64 { return &n }

// Float returns a pointer to f.
func Float(f float64) *float64 { return &f }
