package tasks

import (
	"github.com/pario-ai/propgen/pkg/models"
	"github.com/pario-ai/propgen/pkg/prompt"
	"github.com/pario-ai/propgen/pkg/store"
)

const (
	defaultTemperature = 0.7
	shortAnswerTokens  = 256
	longAnswerTokens   = 512
)

// listingFields renders absent values as explicit "not provided" markers.
var listingFields = map[string]prompt.Field{
	models.FieldPropertyTitle: {Default: "No Title"},
	models.FieldLocation:      {Default: "Unknown Location"},
	models.FieldHotelID:       {Default: "Unknown"},
	models.FieldPrice:         {Default: "Not Available"},
	models.FieldRating:        {Default: "Not Rated"},
	models.FieldAddress:       {Default: "No Address Provided"},
	models.FieldLatitude:      {Default: "No Latitude Provided"},
	models.FieldLongitude:     {Default: "No Longitude Provided"},
	models.FieldRoomType:      {Default: "No Room Type Provided"},
}

// guestFields reads naturally inside marketing copy.
var guestFields = map[string]prompt.Field{
	models.FieldPropertyTitle: {Default: "No Title"},
	models.FieldLocation:      {Default: "Unknown Location"},
	models.FieldHotelID:       {Default: "Unknown"},
	models.FieldPrice:         {Default: "Price on request", Format: "$%s"},
	models.FieldRating:        {Default: "Unrated", Format: "%s/5"},
	models.FieldAddress:       {Default: "Central Location"},
	models.FieldLatitude:      {Default: "No Latitude Provided"},
	models.FieldLongitude:     {Default: "No Longitude Provided"},
	models.FieldRoomType:      {Default: "Room"},
}

const titlePrompt = "Generate a catchy and SEO-friendly title for a hotel named '{property_title}' " +
	"located in {location}. The hotel has the following details: \n" +
	"- Hotel ID: {hotel_id}\n" +
	"- Price: {price}\n" +
	"- Rating: {rating}\n" +
	"- Address: {address}\n" +
	"- Coordinates: Latitude: {latitude}, Longitude: {longitude}\n" +
	"- Room Type: {room_type}\n" +
	"Please make the title creative, engaging, and SEO-friendly, " +
	"considering the amenities and features listed above. " +
	"The title should be different from {property_title}. Only give me the new title. Don't give any options."

const descriptionPrompt = "Write a compelling and detailed description for a hotel named '{property_title}' " +
	"located in {location}. Include the following details in a natural, engaging way:\n" +
	"- Hotel ID: {hotel_id}\n" +
	"- Price: {price}\n" +
	"- Rating: {rating}\n" +
	"- Address: {address}\n" +
	"- Room Type: {room_type}\n" +
	"The description should be in 30 words, highlighting the hotel's location, " +
	"amenities, and unique features. Make it engaging for potential guests while " +
	"maintaining SEO-friendliness. Focus on the value proposition and what makes " +
	"this hotel special. Don't mention the hotel ID in the description."

const summaryPrompt = "Create a compelling, concise summary (maximum 50 words) for a {room_type} at {property_title} " +
	"in {location}. This {price} per night accommodation is rated {rating}.\n\n" +
	"Focus on:\n" +
	"1. Prime location: {address}\n" +
	"2. Unique selling points\n" +
	"3. Value proposition\n\n" +
	"Make it inviting and memorable while highlighting the key features that make this hotel special. " +
	"Craft a single, coherent summary that flows naturally and engages potential guests. " +
	"Avoid listing features and focus on creating a narrative that captures the essence of the stay experience."

const ratingPrompt = "Generate a hypothetical guest rating for a hotel named '{property_title}' " +
	"located in {location}. The hotel has the following details: \n" +
	"- Price: {price}\n" +
	"- Current rating: {rating}\n" +
	"- Address: {address}\n" +
	"- Room Type: {room_type}\n" +
	"Answer with a single realistic rating from 1 to 5, using at most one decimal place. " +
	"Reply with the number only."

const reviewPrompt = "Generate a hypothetical review for a hotel named '{property_title}' " +
	"located in {location}. The hotel has the following details: \n" +
	"- Hotel ID: {hotel_id}\n" +
	"- Price: {price}\n" +
	"- Rating: {rating}\n" +
	"- Address: {address}\n" +
	"- Coordinates: Latitude: {latitude}, Longitude: {longitude}\n" +
	"- Room Type: {room_type}\n" +
	"The review should be engaging and helpful for future guests, based on the attributes above. " +
	"Please make sure the review is realistic and not too lengthy. The review should feel natural."

func init() {
	titleStep := Step{
		Name:        "title",
		Template:    prompt.MustNew("title", titlePrompt, listingFields),
		MaxTokens:   shortAnswerTokens,
		Temperature: defaultTemperature,
		Column:      "regenerated_title",
	}

	register(&Task{
		Name:        "title",
		Description: "regenerate an SEO-friendly title for every hotel",
		Table:       store.RegeneratedTitles,
		Steps:       []Step{titleStep},
		Copy: func(h models.Hotel) map[string]any {
			return map[string]any{
				"location":       optional(h.Location),
				"original_title": optional(h.Title),
				"price":          optional(h.Price),
				"rating":         optional(h.Rating),
				"address":        optional(h.Address),
				"latitude":       optional(h.Latitude),
				"longitude":      optional(h.Longitude),
				"room_type":      optional(h.RoomType),
			}
		},
	})

	register(&Task{
		Name:        "title-description",
		Description: "regenerate a title and write a short description",
		Table:       store.TitleAndDescriptions,
		Reset:       true,
		Steps: []Step{
			titleStep,
			{
				Name:        "description",
				Template:    prompt.MustNew("description", descriptionPrompt, listingFields),
				MaxTokens:   longAnswerTokens,
				Temperature: defaultTemperature,
				Column:      "description",
			},
		},
		Copy: func(h models.Hotel) map[string]any {
			return map[string]any{"original_title": optional(h.Title)}
		},
	})

	register(&Task{
		Name:        "summary",
		Description: "write a guest-facing summary of at most 50 words",
		Table:       store.Summaries,
		Reset:       true,
		Steps: []Step{{
			Name:        "summary",
			Template:    prompt.MustNew("summary", summaryPrompt, guestFields),
			MaxTokens:   shortAnswerTokens,
			Temperature: defaultTemperature,
			Column:      "summary",
		}},
	})

	register(&Task{
		Name:        "rating-review",
		Description: "generate a hypothetical rating and guest review",
		Table:       store.RatingsAndReviews,
		Steps: []Step{
			{
				Name:        "rating",
				Template:    prompt.MustNew("rating", ratingPrompt, listingFields),
				MaxTokens:   16,
				Temperature: defaultTemperature,
				Column:      "rating",
				Parse:       ParseRating,
			},
			{
				Name:        "review",
				Template:    prompt.MustNew("review", reviewPrompt, listingFields),
				MaxTokens:   shortAnswerTokens,
				Temperature: defaultTemperature,
				Column:      "review",
			},
		},
	})
}
