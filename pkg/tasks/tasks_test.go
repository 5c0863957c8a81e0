package tasks

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/propgen/pkg/config"
	"github.com/pario-ai/propgen/pkg/models"
	"github.com/pario-ai/propgen/pkg/prompt"
)

func fullHotel() models.Hotel {
	return models.Hotel{
		ID:        1,
		Location:  models.Str("New York"),
		Title:     models.Str("Test Hotel"),
		HotelID:   models.Int(123),
		Price:     models.Float(200),
		Rating:    models.Float(4.5),
		Address:   models.Str("123 Main St"),
		Latitude:  models.Float(40.7),
		Longitude: models.Float(-74),
		RoomType:  models.Str("Deluxe Suite"),
	}
}

func TestBuiltinTasks(t *testing.T) {
	names := make([]string, 0)
	for _, task := range All() {
		names = append(names, task.Name)
		assert.NotEmpty(t, task.Steps, task.Name)
		for _, s := range task.Steps {
			assert.True(t, task.Table.Has(s.Column), "%s writes %s", task.Name, s.Column)
		}
		for col := range task.Row(fullHotel()) {
			assert.True(t, task.Table.Has(col), "%s copies %s", task.Name, col)
		}
	}
	assert.Equal(t, []string{"rating-review", "summary", "title", "title-description"}, names)
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("poem")
	assert.True(t, errors.Is(err, ErrUnknownTask))
}

func TestTitlePromptRendersEveryField(t *testing.T) {
	task, err := Lookup("title")
	require.NoError(t, err)

	out := task.Steps[0].Template.Render(fullHotel().Fields())
	for _, want := range []string{"Test Hotel", "New York", "123", "200", "4.5", "123 Main St", "40.7", "-74", "Deluxe Suite"} {
		assert.Contains(t, out, want)
	}
}

func TestTitlePromptDefaults(t *testing.T) {
	task, err := Lookup("title")
	require.NoError(t, err)

	out := task.Steps[0].Template.Render(models.Hotel{ID: 2, HotelID: models.Int(7)}.Fields())
	for _, want := range []string{"No Title", "Unknown Location", "Not Available", "Not Rated", "No Address Provided", "No Latitude Provided", "No Room Type Provided"} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "<nil>")
	assert.NotContains(t, out, "{")
}

func TestSummaryFormatsPriceAndRating(t *testing.T) {
	task, err := Lookup("summary")
	require.NoError(t, err)
	tmpl := task.Steps[0].Template

	out := tmpl.Render(fullHotel().Fields())
	assert.Contains(t, out, "This $200 per night")
	assert.Contains(t, out, "rated 4.5/5")

	out = tmpl.Render(models.Hotel{ID: 3}.Fields())
	assert.Contains(t, out, "for a Room at No Title")
	assert.Contains(t, out, "This Price on request per night")
	assert.Contains(t, out, "rated Unrated")
	assert.Contains(t, out, "Prime location: Central Location")
}

func TestTitleRowCopiesSource(t *testing.T) {
	task, err := Lookup("title")
	require.NoError(t, err)

	row := task.Row(models.Hotel{ID: 1, HotelID: models.Int(123), Title: models.Str("Test Hotel"), Location: models.Str("New York")})
	assert.Equal(t, "Test Hotel", row["original_title"])
	assert.Equal(t, "New York", row["location"])
	assert.Nil(t, row["price"])
}

func TestParseRating(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"4.2", 4.2, false},
		{"Rating: 4/5", 4, false},
		{" 5 ", 5, false},
		{"1.0", 1, false},
		{"0.5", 0, true},
		{"7", 0, true},
		{"excellent", 0, true},
		{"-3", 0, true},
		{"Rating: -4.5", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := ParseRating(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRating)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, v, 1e-9)
		})
	}
}

func TestStepValue(t *testing.T) {
	task, err := Lookup("rating-review")
	require.NoError(t, err)

	rating, ok := task.Step("rating")
	require.True(t, ok)
	v, err := rating.Value("4.2")
	require.NoError(t, err)
	assert.Equal(t, 4.2, v)

	_, err = rating.Value("great")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "step rating:"))

	review, ok := task.Step("review")
	require.True(t, ok)
	v, err = review.Value("Generated Review")
	require.NoError(t, err)
	assert.Equal(t, "Generated Review", v)
}

func TestApplyOverrides(t *testing.T) {
	base, err := Lookup("title-description")
	require.NoError(t, err)

	temp := 0.2
	reset := false
	task, err := base.Apply(config.TaskConfig{
		MaxTokens:   64,
		Temperature: &temp,
		Reset:       &reset,
		Prompts:     map[string]string{"title": "Rename {property_title} in {location}."},
	})
	require.NoError(t, err)

	assert.False(t, task.Reset)
	for _, s := range task.Steps {
		assert.Equal(t, 64, s.MaxTokens)
		assert.Equal(t, 0.2, s.Temperature)
	}
	assert.Equal(t, "Rename Test Hotel in New York.", task.Steps[0].Template.Render(fullHotel().Fields()))

	assert.True(t, base.Reset, "base task is unchanged")
	assert.Equal(t, longAnswerTokens, base.Steps[1].MaxTokens)
}

func TestApplyRejectsBadPrompt(t *testing.T) {
	base, err := Lookup("summary")
	require.NoError(t, err)

	_, err = base.Apply(config.TaskConfig{Prompts: map[string]string{"summary": "About {stars}"}})
	var te *prompt.TemplateError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "stars", te.Placeholder)

	_, err = base.Apply(config.TaskConfig{Prompts: map[string]string{"haiku": "x"}})
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	cfg := config.Default()
	cfg.Tasks = map[string]config.TaskConfig{"title": {MaxTokens: 99}}

	task, err := Resolve("title", cfg)
	require.NoError(t, err)
	assert.Equal(t, 99, task.Steps[0].MaxTokens)

	task, err = Resolve("summary", cfg)
	require.NoError(t, err)
	assert.Equal(t, shortAnswerTokens, task.Steps[0].MaxTokens)
}
