package readings

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/daverage/bbtrack/internal/ovulation"
)

// Accepted temperature range in Celsius.
const (
	MinTemperature = 35.0
	MaxTemperature = 42.0
)

var (
	ErrNotFound       = errors.New("reading not found")
	ErrInvalidReading = errors.New("invalid reading")
)

// Entry is a stored daily reading.
type Entry struct {
	ID          string    `json:"id" yaml:"id"`
	Date        string    `json:"date" yaml:"date"`
	Temperature float64   `json:"temperature" yaml:"temperature"`
	Fever       bool      `json:"fever" yaml:"fever"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// ToReading converts the entry for the engine, placing its date at local
// midnight in loc.
func (e *Entry) ToReading(loc *time.Location) (ovulation.Reading, error) {
	date, err := ovulation.ParseDate(e.Date, loc)
	if err != nil {
		return ovulation.Reading{}, err
	}
	return ovulation.Reading{
		ID:          e.ID,
		Date:        date,
		Temperature: e.Temperature,
		Fever:       e.Fever,
		Notes:       e.Notes,
	}, nil
}

// Input is a reading as entered by the user.
type Input struct {
	Date        string
	Temperature float64
	Fever       bool
	Notes       string
}

// validate checks the input and returns its canonical date string.
func (in Input) validate(loc *time.Location) (string, error) {
	date, err := ovulation.ParseDate(in.Date, loc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidReading, err)
	}
	if math.IsNaN(in.Temperature) || in.Temperature < MinTemperature || in.Temperature > MaxTemperature {
		return "", fmt.Errorf("%w: temperature %.2f°C outside %.1f-%.1f°C", ErrInvalidReading, in.Temperature, MinTemperature, MaxTemperature)
	}
	return ovulation.FormatDate(date), nil
}
