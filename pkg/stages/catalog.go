package stages

import (
	"context"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
)

// Catalog is an in-process PlaceFinder seeded with curated places for a
// handful of demo destinations. It stands in for a live search backend
// and returns nothing for destinations it does not know, which is a
// legitimate no-results outcome rather than an error.
type Catalog struct {
	byCity map[string][]domain.Place
}

// NewCatalog creates the seeded demo catalog.
func NewCatalog() *Catalog {
	return &Catalog{byCity: demoPlaces()}
}

// Find returns the catalog's places of the given kind for the
// destination. Matching is case-insensitive on the city name, so
// "Tokyo, Japan" resolves via its leading token.
func (c *Catalog) Find(ctx context.Context, destination string, kind domain.PlaceKind) ([]domain.Place, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	city := strings.ToLower(strings.TrimSpace(strings.SplitN(destination, ",", 2)[0]))
	var out []domain.Place
	for _, p := range c.byCity[city] {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out, nil
}

func demoPlaces() map[string][]domain.Place {
	return map[string][]domain.Place{
		"mumbai": {
			{ID: "mum-h1", Name: "Taj Mahal Palace", Kind: domain.PlaceHotel, Rating: 4.8, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 18.9217, Lng: 72.8332, Address: "Apollo Bunder, Colaba"},
				Tags:     []string{"luxury", "heritage"}, Features: []string{"sea view", "pool"}},
			{ID: "mum-h2", Name: "Abode Bombay", Kind: domain.PlaceHotel, Rating: 4.5, PriceLevel: "$$",
				Location: &domain.Location{Lat: 18.9225, Lng: 72.8317, Address: "Colaba"},
				Tags:     []string{"boutique"}},
			{ID: "mum-r1", Name: "Leopold Cafe", Kind: domain.PlaceRestaurant, Rating: 4.2, PriceLevel: "$$",
				Location: &domain.Location{Lat: 18.9226, Lng: 72.8318, Address: "Colaba Causeway"},
				Hours:    &domain.Hours{Open: "08:00", Close: "23:00"},
				Tags:     []string{"food", "history"}},
			{ID: "mum-r2", Name: "Trishna", Kind: domain.PlaceRestaurant, Rating: 4.6, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 18.9281, Lng: 72.8319, Address: "Kala Ghoda"},
				Hours:    &domain.Hours{Open: "12:00", Close: "23:30"},
				Tags:     []string{"food", "seafood"}},
			{ID: "mum-r3", Name: "Britannia & Co", Kind: domain.PlaceRestaurant, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9353, Lng: 72.8401, Address: "Ballard Estate"},
				Hours:    &domain.Hours{Open: "11:30", Close: "16:00", ClosedDays: []string{"Sunday"}},
				Tags:     []string{"food", "history"}},
			{ID: "mum-a1", Name: "Gateway of India", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9220, Lng: 72.8347, Address: "Apollo Bunder"},
				Tags:     []string{"history", "culture"}, Description: "Iconic colonial monument on the harbour."},
			{ID: "mum-a2", Name: "Elephanta Caves", Kind: domain.PlaceAttraction, Rating: 4.5, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9633, Lng: 72.9315, Address: "Elephanta Island"},
				Hours:    &domain.Hours{Open: "09:00", Close: "17:30", ClosedDays: []string{"Monday"}},
				Tags:     []string{"history", "nature"}, Description: "UNESCO rock-cut cave temples, reached by ferry."},
			{ID: "mum-a3", Name: "Marine Drive", Kind: domain.PlaceAttraction, Rating: 4.7, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9440, Lng: 72.8234},
				Tags:     []string{"nature", "nightlife"}, Description: "The Queen's Necklace seafront promenade."},
			{ID: "mum-a4", Name: "Chhatrapati Shivaji Terminus", Kind: domain.PlaceAttraction, Rating: 4.5, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9398, Lng: 72.8355, Address: "CST"},
				Tags:     []string{"history", "culture"}, Description: "Victorian Gothic railway terminus."},
			{ID: "mum-a5", Name: "Chowpatty Beach", Kind: domain.PlaceAttraction, Rating: 4.3, PriceLevel: "$",
				Location: &domain.Location{Lat: 18.9548, Lng: 72.8147, Address: "Girgaon"},
				Tags:     []string{"food", "nature"}, Description: "Street food and sunset crowds."},
		},
		"tokyo": {
			{ID: "tok-h1", Name: "Park Hyatt Tokyo", Kind: domain.PlaceHotel, Rating: 4.8, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 35.6852, Lng: 139.6905, Address: "Shinjuku"},
				Tags:     []string{"luxury"}, Features: []string{"skyline view", "pool"}},
			{ID: "tok-h2", Name: "Hotel Gracery Shinjuku", Kind: domain.PlaceHotel, Rating: 4.3, PriceLevel: "$$",
				Location: &domain.Location{Lat: 35.6952, Lng: 139.7019, Address: "Kabukicho"},
				Tags:     []string{"modern"}},
			{ID: "tok-r1", Name: "Ichiran Shibuya", Kind: domain.PlaceRestaurant, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 35.6595, Lng: 139.7005, Address: "Shibuya"},
				Hours:    &domain.Hours{Open: "10:00", Close: "23:00"},
				Tags:     []string{"food"}},
			{ID: "tok-r2", Name: "Gonpachi Nishi-Azabu", Kind: domain.PlaceRestaurant, Rating: 4.3, PriceLevel: "$$",
				Location: &domain.Location{Lat: 35.6580, Lng: 139.7228, Address: "Nishi-Azabu"},
				Hours:    &domain.Hours{Open: "11:30", Close: "23:30"},
				Tags:     []string{"food", "nightlife"}},
			{ID: "tok-r3", Name: "Tsukiji Outer Market", Kind: domain.PlaceRestaurant, Rating: 4.6, PriceLevel: "$$",
				Location: &domain.Location{Lat: 35.6654, Lng: 139.7707, Address: "Tsukiji"},
				Hours:    &domain.Hours{Open: "06:00", Close: "14:00"},
				Tags:     []string{"food", "culture"}},
			{ID: "tok-a1", Name: "Senso-ji Temple", Kind: domain.PlaceAttraction, Rating: 4.7, PriceLevel: "$",
				Location: &domain.Location{Lat: 35.7148, Lng: 139.7967, Address: "Asakusa"},
				Hours:    &domain.Hours{Open: "06:00", Close: "17:00"},
				Tags:     []string{"history", "culture"}, Description: "Tokyo's oldest temple, with the Nakamise street."},
			{ID: "tok-a2", Name: "Shibuya Crossing", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$",
				Location: &domain.Location{Lat: 35.6595, Lng: 139.7004, Address: "Shibuya Station"},
				Tags:     []string{"culture", "shopping"}, Description: "The world's busiest pedestrian crossing."},
			{ID: "tok-a3", Name: "Tokyo Skytree", Kind: domain.PlaceAttraction, Rating: 4.5, PriceLevel: "$$",
				Location: &domain.Location{Lat: 35.7101, Lng: 139.8107, Address: "Sumida"},
				Hours:    &domain.Hours{Open: "10:00", Close: "21:00"},
				Tags:     []string{"culture"}, Description: "634m observation tower."},
			{ID: "tok-a4", Name: "Meiji Shrine", Kind: domain.PlaceAttraction, Rating: 4.7, PriceLevel: "$",
				Location: &domain.Location{Lat: 35.6764, Lng: 139.6993, Address: "Shibuya"},
				Hours:    &domain.Hours{Open: "09:00", Close: "16:30"},
				Tags:     []string{"nature", "culture"}, Description: "Forest shrine in the middle of the city."},
			{ID: "tok-a5", Name: "Akihabara Electric Town", Kind: domain.PlaceAttraction, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 35.7022, Lng: 139.7745, Address: "Akihabara"},
				Tags:     []string{"shopping", "culture"}, Description: "Anime, manga and electronics district."},
		},
		"paris": {
			{ID: "par-h1", Name: "Le Meurice", Kind: domain.PlaceHotel, Rating: 4.8, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 48.8656, Lng: 2.3281, Address: "Rue de Rivoli"},
				Tags:     []string{"luxury", "history"}},
			{ID: "par-h2", Name: "Hotel des Arts Montmartre", Kind: domain.PlaceHotel, Rating: 4.4, PriceLevel: "$$",
				Location: &domain.Location{Lat: 48.8848, Lng: 2.3370, Address: "Montmartre"},
				Tags:     []string{"boutique"}},
			{ID: "par-r1", Name: "Le Comptoir du Relais", Kind: domain.PlaceRestaurant, Rating: 4.4, PriceLevel: "$$",
				Location: &domain.Location{Lat: 48.8519, Lng: 2.3388, Address: "Saint-Germain"},
				Hours:    &domain.Hours{Open: "12:00", Close: "23:00"},
				Tags:     []string{"food"}},
			{ID: "par-r2", Name: "L'As du Fallafel", Kind: domain.PlaceRestaurant, Rating: 4.5, PriceLevel: "$",
				Location: &domain.Location{Lat: 48.8575, Lng: 2.3590, Address: "Le Marais"},
				Hours:    &domain.Hours{Open: "11:00", Close: "23:00", ClosedDays: []string{"Saturday"}},
				Tags:     []string{"food"}},
			{ID: "par-a1", Name: "Eiffel Tower", Kind: domain.PlaceAttraction, Rating: 4.7, PriceLevel: "$$",
				Location: &domain.Location{Lat: 48.8584, Lng: 2.2945, Address: "Champ de Mars"},
				Hours:    &domain.Hours{Open: "09:00", Close: "23:00"},
				Tags:     []string{"culture", "history"}},
			{ID: "par-a2", Name: "Louvre Museum", Kind: domain.PlaceAttraction, Rating: 4.8, PriceLevel: "$$",
				Location: &domain.Location{Lat: 48.8606, Lng: 2.3376, Address: "Rue de Rivoli"},
				Hours:    &domain.Hours{Open: "09:00", Close: "18:00", ClosedDays: []string{"Tuesday"}},
				Tags:     []string{"culture", "history"}},
			{ID: "par-a3", Name: "Montmartre & Sacre-Coeur", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$",
				Location: &domain.Location{Lat: 48.8867, Lng: 2.3431},
				Tags:     []string{"culture", "nature"}},
			{ID: "par-a4", Name: "Seine River Cruise", Kind: domain.PlaceAttraction, Rating: 4.5, PriceLevel: "$$",
				Location: &domain.Location{Lat: 48.8600, Lng: 2.3130},
				Tags:     []string{"nature", "nightlife"}},
		},
		"goa": {
			{ID: "goa-h1", Name: "Taj Fort Aguada", Kind: domain.PlaceHotel, Rating: 4.6, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 15.4989, Lng: 73.7656, Address: "Sinquerim"},
				Tags:     []string{"luxury", "nature"}, Features: []string{"beachfront", "pool"}},
			{ID: "goa-h2", Name: "The Hosteller Goa", Kind: domain.PlaceHotel, Rating: 4.3, PriceLevel: "$",
				Location: &domain.Location{Lat: 15.5523, Lng: 73.7517, Address: "Anjuna"},
				Tags:     []string{"backpacker"}},
			{ID: "goa-r1", Name: "Gunpowder", Kind: domain.PlaceRestaurant, Rating: 4.5, PriceLevel: "$$",
				Location: &domain.Location{Lat: 15.5760, Lng: 73.7403, Address: "Assagao"},
				Hours:    &domain.Hours{Open: "12:00", Close: "22:30", ClosedDays: []string{"Monday"}},
				Tags:     []string{"food"}},
			{ID: "goa-r2", Name: "Britto's", Kind: domain.PlaceRestaurant, Rating: 4.2, PriceLevel: "$$",
				Location: &domain.Location{Lat: 15.5566, Lng: 73.7516, Address: "Baga Beach"},
				Hours:    &domain.Hours{Open: "08:30", Close: "23:00"},
				Tags:     []string{"food", "nature"}},
			{ID: "goa-a1", Name: "Calangute Beach", Kind: domain.PlaceAttraction, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 15.5439, Lng: 73.7553},
				Tags:     []string{"nature"}},
			{ID: "goa-a2", Name: "Fort Aguada", Kind: domain.PlaceAttraction, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 15.4920, Lng: 73.7736},
				Hours:    &domain.Hours{Open: "09:30", Close: "18:00"},
				Tags:     []string{"history", "nature"}},
			{ID: "goa-a3", Name: "Anjuna Flea Market", Kind: domain.PlaceAttraction, Rating: 4.2, PriceLevel: "$",
				Location: &domain.Location{Lat: 15.5735, Lng: 73.7440, Address: "Anjuna"},
				Hours:    &domain.Hours{Open: "09:00", Close: "18:00"},
				Tags:     []string{"shopping", "culture"}},
			{ID: "goa-a4", Name: "Dudhsagar Falls", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$$",
				Location: &domain.Location{Lat: 15.3144, Lng: 74.3143},
				Tags:     []string{"nature", "outdoors"}},
		},
		"dubai": {
			{ID: "dub-h1", Name: "Atlantis The Palm", Kind: domain.PlaceHotel, Rating: 4.7, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 25.1304, Lng: 55.1171, Address: "Palm Jumeirah"},
				Tags:     []string{"luxury"}, Features: []string{"waterpark", "aquarium"}},
			{ID: "dub-h2", Name: "Rove Downtown", Kind: domain.PlaceHotel, Rating: 4.4, PriceLevel: "$$",
				Location: &domain.Location{Lat: 25.1938, Lng: 55.2786, Address: "Downtown Dubai"},
				Tags:     []string{"modern"}},
			{ID: "dub-r1", Name: "Al Ustad Special Kabab", Kind: domain.PlaceRestaurant, Rating: 4.5, PriceLevel: "$",
				Location: &domain.Location{Lat: 25.2591, Lng: 55.2920, Address: "Al Mankhool"},
				Hours:    &domain.Hours{Open: "12:30", Close: "23:30"},
				Tags:     []string{"food"}},
			{ID: "dub-r2", Name: "Pierchic", Kind: domain.PlaceRestaurant, Rating: 4.6, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 25.1326, Lng: 55.1843, Address: "Al Qasr, Madinat Jumeirah"},
				Hours:    &domain.Hours{Open: "12:30", Close: "23:00"},
				Tags:     []string{"food", "seafood"}},
			{ID: "dub-a1", Name: "Burj Khalifa", Kind: domain.PlaceAttraction, Rating: 4.7, PriceLevel: "$$$",
				Location: &domain.Location{Lat: 25.1972, Lng: 55.2744, Address: "Downtown Dubai"},
				Hours:    &domain.Hours{Open: "09:00", Close: "23:00"},
				Tags:     []string{"culture"}, Description: "The world's tallest building."},
			{ID: "dub-a2", Name: "Dubai Mall", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$$",
				Location: &domain.Location{Lat: 25.1985, Lng: 55.2796},
				Hours:    &domain.Hours{Open: "10:00", Close: "23:00"},
				Tags:     []string{"shopping"}},
			{ID: "dub-a3", Name: "Desert Safari", Kind: domain.PlaceAttraction, Rating: 4.6, PriceLevel: "$$",
				Location: &domain.Location{Lat: 24.9857, Lng: 55.5310},
				Tags:     []string{"nature", "outdoors"}},
			{ID: "dub-a4", Name: "Dubai Creek & Gold Souk", Kind: domain.PlaceAttraction, Rating: 4.4, PriceLevel: "$",
				Location: &domain.Location{Lat: 25.2676, Lng: 55.2962, Address: "Deira"},
				Hours:    &domain.Hours{Open: "10:00", Close: "22:00"},
				Tags:     []string{"shopping", "history"}},
		},
	}
}
