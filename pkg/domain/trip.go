package domain

import "time"

// CompanionType describes who is travelling.
type CompanionType string

const (
	CompanionSolo         CompanionType = "solo"
	CompanionCouple       CompanionType = "couple"
	CompanionFamilyKids   CompanionType = "family_with_kids"
	CompanionFamilyAdults CompanionType = "family_adults"
	CompanionFriends      CompanionType = "friends"
	CompanionBusiness     CompanionType = "business"
)

// TravelPace controls how densely days are scheduled.
type TravelPace string

const (
	PaceRelaxed  TravelPace = "relaxed"
	PaceModerate TravelPace = "moderate"
	PacePacked   TravelPace = "packed"
)

// BudgetLevel is the coarse budget category used for place filtering.
type BudgetLevel string

const (
	BudgetLow  BudgetLevel = "budget"
	BudgetMid  BudgetLevel = "mid_range"
	BudgetHigh BudgetLevel = "luxury"
)

// Confidence records whether a preference was stated by the user or assumed.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// DateRange holds parsed travel dates. Start/End use YYYY-MM-DD.
type DateRange struct {
	Start        string `json:"start,omitempty"`
	End          string `json:"end,omitempty"`
	DurationDays int    `json:"duration_days,omitempty"`
	Flexibility  string `json:"flexibility,omitempty"`
}

// Budget holds parsed budget information.
type Budget struct {
	Amount   int         `json:"amount,omitempty"`
	Level    BudgetLevel `json:"level,omitempty"`
	Currency string      `json:"currency,omitempty"`
	PerDay   int         `json:"per_day,omitempty"`
}

// Preferences is the single source of truth for personalization,
// accumulated by the clarifier stage across turns.
type Preferences struct {
	Destination string         `json:"destination,omitempty"`
	Dates       *DateRange     `json:"dates,omitempty"`
	Budget      *Budget        `json:"budget,omitempty"`
	Companions  CompanionType  `json:"companions,omitempty"`
	Pace        TravelPace     `json:"pace,omitempty"`
	Interests   []string       `json:"interests,omitempty"`
	HotelStyle  string         `json:"hotel_style,omitempty"`
	MustHaves   []string       `json:"must_haves,omitempty"`
	Avoids      []string       `json:"avoids,omitempty"`

	// ExtractedWith records per-field confidence so assumed defaults
	// can be surfaced back to the user.
	ExtractedWith map[string]Confidence `json:"extracted_with,omitempty"`
}

// Complete reports whether the requirements that unlock research are present.
func (p Preferences) Complete() bool {
	return p.Destination != "" && p.Dates != nil && p.Budget != nil && p.Companions != ""
}

// PlaceKind categorizes a collected place.
type PlaceKind string

const (
	PlaceHotel      PlaceKind = "hotel"
	PlaceRestaurant PlaceKind = "restaurant"
	PlaceAttraction PlaceKind = "attraction"
)

// Location is a geographic point used for route planning.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// Hours are business hours used by the scheduler.
type Hours struct {
	Open       string   `json:"open,omitempty"`
	Close      string   `json:"close,omitempty"`
	ClosedDays []string `json:"closed_days,omitempty"`
}

// Place is a structured place record collected by the researcher stage.
type Place struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        PlaceKind `json:"kind"`
	Rating      float64   `json:"rating,omitempty"`
	PriceLevel  string    `json:"price_level,omitempty"`
	Location    *Location `json:"location,omitempty"`
	Hours       *Hours    `json:"hours,omitempty"`
	Features    []string  `json:"features,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Description string    `json:"description,omitempty"`
	MatchScore  int       `json:"match_score,omitempty"`
}

// ScheduledActivity is one time-slotted entry in a day plan.
type ScheduledActivity struct {
	Start           string `json:"start"`
	End             string `json:"end,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
	Place           Place  `json:"place"`
	TravelMinutes   int    `json:"travel_minutes,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// ItineraryDay is a single day plan. Day numbers are 1-indexed and
// strictly increasing within an itinerary.
type ItineraryDay struct {
	Day                int                 `json:"day"`
	Date               string              `json:"date,omitempty"`
	Theme              string              `json:"theme,omitempty"`
	Activities         []ScheduledActivity `json:"activities"`
	TotalTravelMinutes int                 `json:"total_travel_minutes,omitempty"`
}

// TripState is the durable, per-session planning record. It is mutated
// exclusively by the orchestrator, one patch per completed task.
type TripState struct {
	Preferences Preferences `json:"preferences"`

	Hotels      []Place `json:"hotels"`
	Restaurants []Place `json:"restaurants"`
	Attractions []Place `json:"attractions"`

	// NoResults marks research that legitimately found nothing, which
	// still satisfies the researching exit condition.
	NoResults bool `json:"no_results,omitempty"`

	RecommendedActivities []Place `json:"recommended_activities"`

	Itinerary []ItineraryDay `json:"itinerary"`

	Phase       Phase     `json:"phase"`
	Warnings    []string  `json:"warnings"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// NewTripState creates an empty state at the clarifying phase.
func NewTripState() *TripState {
	return &TripState{
		Hotels:                []Place{},
		Restaurants:           []Place{},
		Attractions:           []Place{},
		RecommendedActivities: []Place{},
		Itinerary:             []ItineraryDay{},
		Warnings:              []string{},
		Phase:                 PhaseClarifying,
	}
}

// Clone returns a deep copy so a stage failure never leaks partial writes
// into the committed state.
func (s *TripState) Clone() *TripState {
	if s == nil {
		return nil
	}
	out := *s
	out.Hotels = clonePlaces(s.Hotels)
	out.Restaurants = clonePlaces(s.Restaurants)
	out.Attractions = clonePlaces(s.Attractions)
	out.RecommendedActivities = clonePlaces(s.RecommendedActivities)
	out.Warnings = append([]string(nil), s.Warnings...)
	out.Itinerary = make([]ItineraryDay, len(s.Itinerary))
	for i, d := range s.Itinerary {
		day := d
		day.Activities = make([]ScheduledActivity, len(d.Activities))
		for j, a := range d.Activities {
			act := a
			act.Place = clonePlace(a.Place)
			day.Activities[j] = act
		}
		out.Itinerary[i] = day
	}
	out.Preferences = s.Preferences.Clone()
	return &out
}

// Clone returns a deep copy of the preferences.
func (p Preferences) Clone() Preferences {
	out := p
	if p.Dates != nil {
		d := *p.Dates
		out.Dates = &d
	}
	if p.Budget != nil {
		b := *p.Budget
		out.Budget = &b
	}
	out.Interests = append([]string(nil), p.Interests...)
	out.MustHaves = append([]string(nil), p.MustHaves...)
	out.Avoids = append([]string(nil), p.Avoids...)
	if p.ExtractedWith != nil {
		out.ExtractedWith = make(map[string]Confidence, len(p.ExtractedWith))
		for k, v := range p.ExtractedWith {
			out.ExtractedWith[k] = v
		}
	}
	return out
}

func clonePlace(p Place) Place {
	out := p
	if p.Location != nil {
		loc := *p.Location
		out.Location = &loc
	}
	if p.Hours != nil {
		h := *p.Hours
		h.ClosedDays = append([]string(nil), p.Hours.ClosedDays...)
		out.Hours = &h
	}
	out.Features = append([]string(nil), p.Features...)
	out.Tags = append([]string(nil), p.Tags...)
	return out
}

func clonePlaces(in []Place) []Place {
	if in == nil {
		return nil
	}
	out := make([]Place, len(in))
	for i, p := range in {
		out[i] = clonePlace(p)
	}
	return out
}

// AddWarning appends a diagnostic note, skipping exact duplicates.
func (s *TripState) AddWarning(msg string) {
	for _, w := range s.Warnings {
		if w == msg {
			return
		}
	}
	s.Warnings = append(s.Warnings, msg)
}
