package stages

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/roamkit/roamkit/pkg/domain"
)

// destinationCorrections normalizes common shorthand and typos into
// canonical destination names.
var destinationCorrections = map[string]string{
	"tokio":     "Tokyo, Japan",
	"tokyo":     "Tokyo, Japan",
	"japan":     "Tokyo, Japan",
	"paris":     "Paris, France",
	"mumbai":    "Mumbai, India",
	"bombay":    "Mumbai, India",
	"goa":       "Goa, India",
	"new york":  "New York, USA",
	"nyc":       "New York, USA",
	"la":        "Los Angeles, USA",
	"sf":        "San Francisco, USA",
	"london":    "London, United Kingdom",
	"rome":      "Rome, Italy",
	"barcelona": "Barcelona, Spain",
	"bangkok":   "Bangkok, Thailand",
	"singapore": "Singapore",
	"sydney":    "Sydney, Australia",
	"dubai":     "Dubai, UAE",
	"bali":      "Bali, Indonesia",
}

var (
	destinationRe = regexp.MustCompile(`(?i)\b(?:trip to|travel to|going to|visit|visiting|fly to|in)\s+([a-zA-Z][a-zA-Z .']+?)(?:[,.!?]|$|\s+(?:for|from|with|on|next|this|in)\b)`)
	isoRangeRe    = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*(?:to|until|-|through)\s*(\d{4}-\d{2}-\d{2})`)
	durationRe    = regexp.MustCompile(`(?i)\b(\d+)[- ]day`)
	budgetAmtRe   = regexp.MustCompile(`(?i)(?:budget|spend|around|about)\D{0,12}?(\d[\d,]*)\s*(k|thousand)?(?:[- ]*(days?|weeks?|nights?))?`)
)

// extracted holds entities recognized in one user message.
type extracted struct {
	destination string
	destConf    domain.Confidence
	dates       *domain.DateRange
	datesConf   domain.Confidence
	budget      *domain.Budget
	budgetConf  domain.Confidence
	companions  domain.CompanionType
	pace        domain.TravelPace
	interests   []string
	hotelStyle  string
	acceptAll   bool
}

// extractEntities mines structured trip facts from a free-form message.
// The heuristics mirror what the upstream extraction specialist returns;
// keeping them here makes the built-in clarifier self-contained.
func extractEntities(message string) extracted {
	text := strings.ToLower(message)
	var out extracted

	// Destination: corrections table first, then a "to X" pattern.
	for key, canonical := range destinationCorrections {
		if containsWord(text, key) {
			out.destination = canonical
			out.destConf = domain.ConfidenceHigh
			break
		}
	}
	if out.destination == "" {
		if m := destinationRe.FindStringSubmatch(message); m != nil {
			candidate := strings.TrimSpace(m[1])
			if corrected, ok := destinationCorrections[strings.ToLower(candidate)]; ok {
				out.destination = corrected
				out.destConf = domain.ConfidenceHigh
			} else if len(candidate) >= 3 {
				out.destination = titleCase(candidate)
				out.destConf = domain.ConfidenceMedium
			}
		}
	}

	// Dates: explicit range beats a duration mention.
	if m := isoRangeRe.FindStringSubmatch(text); m != nil {
		out.dates = &domain.DateRange{Start: m[1], End: m[2]}
		out.datesConf = domain.ConfidenceHigh
	} else if m := durationRe.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n > 0 {
			out.dates = &domain.DateRange{DurationDays: n}
			out.datesConf = domain.ConfidenceHigh
		}
	} else if strings.Contains(text, "weekend") {
		out.dates = &domain.DateRange{DurationDays: 2, Flexibility: "flexible"}
		out.datesConf = domain.ConfidenceMedium
	}

	// Budget: explicit amount, then level words. A number followed by a
	// duration unit is a trip length, not money ("about 5 days").
	if m := budgetAmtRe.FindStringSubmatch(text); m != nil && m[3] == "" {
		amount, _ := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
		if m[2] != "" {
			amount *= 1000
		}
		if amount > 0 {
			out.budget = &domain.Budget{Amount: amount, Level: levelForAmount(amount), Currency: "USD"}
			out.budgetConf = domain.ConfidenceHigh
		}
	}
	if out.budget == nil {
		switch {
		case strings.Contains(text, "cheap") || containsWord(text, "budget"):
			out.budget = &domain.Budget{Level: domain.BudgetLow}
			out.budgetConf = domain.ConfidenceMedium
		case strings.Contains(text, "luxury") || strings.Contains(text, "5-star") || strings.Contains(text, "five star"):
			out.budget = &domain.Budget{Level: domain.BudgetHigh}
			out.budgetConf = domain.ConfidenceHigh
		case strings.Contains(text, "mid-range") || strings.Contains(text, "mid range") || strings.Contains(text, "moderate budget"):
			out.budget = &domain.Budget{Level: domain.BudgetMid}
			out.budgetConf = domain.ConfidenceMedium
		}
	}

	// Companions.
	switch {
	case anyWord(text, "wife", "husband", "partner", "girlfriend", "boyfriend", "honeymoon", "romantic", "couple"):
		out.companions = domain.CompanionCouple
	case anyWord(text, "kids", "children", "toddler") || strings.Contains(text, "family with kids"):
		out.companions = domain.CompanionFamilyKids
	case anyWord(text, "friends", "buddies", "group"):
		out.companions = domain.CompanionFriends
	case anyWord(text, "solo", "alone", "myself"):
		out.companions = domain.CompanionSolo
	case anyWord(text, "parents", "family"):
		out.companions = domain.CompanionFamilyAdults
	case anyWord(text, "business", "conference", "work trip"):
		out.companions = domain.CompanionBusiness
	}

	// Pace.
	switch {
	case anyWord(text, "relaxed", "slow", "chill", "easy-going"):
		out.pace = domain.PaceRelaxed
	case anyWord(text, "packed", "busy", "as much as possible", "everything"):
		out.pace = domain.PacePacked
	}

	// Interests.
	for interest, words := range interestKeywords {
		if anyWord(text, words...) {
			out.interests = append(out.interests, interest)
		}
	}

	// Hotel style.
	switch {
	case anyWord(text, "hostel", "cheap stay"):
		out.hotelStyle = "budget"
	case anyWord(text, "boutique"):
		out.hotelStyle = "boutique"
	case anyWord(text, "airbnb", "apartment"):
		out.hotelStyle = "airbnb"
	}

	// Consent to proceed with assumed defaults.
	out.acceptAll = anyPhrase(text,
		"surprise me", "you decide", "you choose", "whatever works",
		"sounds good", "go ahead", "up to you", "anything is fine")

	return out
}

var interestKeywords = map[string][]string{
	"food":       {"food", "foodie", "eat", "restaurants", "street food", "dining"},
	"museums":    {"museum", "museums", "art", "galleries"},
	"nature":     {"nature", "hiking", "outdoors", "parks", "mountains"},
	"nightlife":  {"nightlife", "bars", "clubs", "party"},
	"shopping":   {"shopping", "markets", "malls"},
	"history":    {"history", "historical", "culture", "temples", "heritage"},
	"adventure":  {"adventure", "thrill", "surfing", "diving"},
	"relaxation": {"relax", "relaxation", "spa", "beach", "unwind"},
}

func levelForAmount(amount int) domain.BudgetLevel {
	switch {
	case amount < 1000:
		return domain.BudgetLow
	case amount < 5000:
		return domain.BudgetMid
	default:
		return domain.BudgetHigh
	}
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isAlpha(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isAlpha(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx = idx + 1 + next
	}
	return false
}

func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func anyWord(text string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(w, " ") {
			if strings.Contains(text, w) {
				return true
			}
			continue
		}
		if containsWord(text, w) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func anyPhrase(text string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
