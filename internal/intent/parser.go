// Package intent turns free-text search queries into structured intents with
// a small rule set: keyword scoring for the category and regular expressions
// for budget, time and location.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"
)

var categoryKeywords = map[models.Category][]string{
	models.CategoryFood: {
		"pizza", "burger", "sushi", "tacos", "food", "delivery", "restaurant",
		"eat", "meal", "lunch", "dinner", "breakfast", "wings", "chinese",
		"indian", "thai", "mexican", "italian", "noodles", "rice", "salad",
		"sandwich", "soup", "steak", "chicken", "vegan", "vegetarian",
		"dessert", "coffee", "bubble tea", "fries", "pasta", "ramen",
	},
	models.CategoryProduct: {
		"buy", "product", "price", "laptop", "phone", "headphones", "tv",
		"camera", "tablet", "monitor", "keyboard", "mouse", "watch",
		"shoes", "clothing", "book", "electronics", "appliance", "gadget",
		"deal", "purchase", "shop", "compare", "cheapest",
	},
	models.CategoryRide: {
		"ride", "uber", "lyft", "taxi", "cab", "drive", "airport",
		"transport", "pickup", "drop", "commute", "carpool",
	},
	models.CategoryHotel: {
		"hotel", "motel", "resort", "airbnb", "vrbo", "stay", "accommodation",
		"booking", "lodge", "hostel", "room", "suite", "night", "check-in",
		"vacation", "rental", "bed and breakfast",
	},
}

var (
	budgetPatterns = compileAll(
		`(?i)under\s+\$?(\d+(?:\.\d+)?)`,
		`(?i)below\s+\$?(\d+(?:\.\d+)?)`,
		`(?i)less\s+than\s+\$?(\d+(?:\.\d+)?)`,
		`(?i)max(?:imum)?\s+\$?(\d+(?:\.\d+)?)`,
		`(?i)budget\s+(?:of\s+)?\$?(\d+(?:\.\d+)?)`,
		`(?i)\$(\d+(?:\.\d+)?)\s*(?:max|limit|budget)`,
		`(?i)up\s+to\s+\$?(\d+(?:\.\d+)?)`,
	)

	timePatterns = compileAll(
		`(?i)within\s+(\d+)\s*min(?:ute)?s?`,
		`(?i)in\s+(\d+)\s*min(?:ute)?s?`,
		`(?i)under\s+(\d+)\s*min(?:ute)?s?`,
	)

	locationPatterns = compileAll(
		`\b(?:in|near|around|to|from|at)\s+([A-Z][a-zA-Z\s]+?)(?:\s+(?:for|under|within|below|max|this|next)|$)`,
		`\b(?:in|near|around|to|from|at)\s+the\s+([a-zA-Z\s]+?)(?:\s+(?:for|under|within|below|max|this|next)|$)`,
	)

	preamble    = regexp.MustCompile(`(?i)^(?:find\s+(?:me\s+)?(?:the\s+)?|search\s+(?:for\s+)?|compare\s+|get\s+(?:me\s+)?|show\s+(?:me\s+)?|i\s+(?:want|need)\s+(?:a\s+)?|what(?:'s|\s+is)\s+the\s+)`)
	suffix      = regexp.MustCompile(`(?i)\s+(?:under|below|less than|up to|within|in|near|around|for|max)\b.*$`)
	superlative = regexp.MustCompile(`(?i)^(?:cheapest|best|fastest|nearest|lowest|most affordable)\s+`)
	nonWord     = regexp.MustCompile(`[^a-z0-9\-]+`)

	// budget patterns also match "under 30 min"
	minutesAfter = regexp.MustCompile(`(?i)^\s*min`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Result is what the parser could read out of a query.
type Result struct {
	Category       models.Category `json:"category"`
	Item           string          `json:"item"`
	MaxPrice       *float64        `json:"max_price,omitempty"`
	MaxTimeMinutes *int            `json:"max_time_minutes,omitempty"`
	Location       string          `json:"location,omitempty"`
	// KeywordHits is the winning category's score; 0 when the category was explicit.
	KeywordHits int `json:"keyword_hits"`
}

// Constraints overlays explicit constraints on the parsed ones. Explicit
// values always win.
func (r Result) Constraints(explicit models.Constraints) models.Constraints {
	out := explicit
	if out.MaxPrice == nil {
		out.MaxPrice = r.MaxPrice
	}
	if out.MaxTimeMinutes == nil {
		out.MaxTimeMinutes = r.MaxTimeMinutes
	}
	if out.Location == "" {
		out.Location = r.Location
	}
	return out
}

type Parser struct {
	logger logger.Logger
}

func NewParser(log logger.Logger) *Parser {
	return &Parser{logger: logger.ForComponent(log, "intent")}
}

// Parse reads a query. An explicit category skips keyword detection; without
// one, a query that matches no keyword fails with UnresolvedCategory.
func (p *Parser) Parse(query string, explicit models.Category) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, apperrors.NewInvalidRequestError("query is required")
	}

	res := Result{Category: explicit}
	if explicit == "" {
		category, hits := detectCategory(query)
		if hits == 0 {
			p.logger.Info("query matched no category", map[string]interface{}{"query": query})
			return Result{}, apperrors.NewUnresolvedCategoryError(query)
		}
		res.Category, res.KeywordHits = category, hits
	} else if !explicit.Valid() {
		return Result{}, apperrors.NewInvalidRequestError("unknown category " + strconv.Quote(string(explicit)))
	}

	res.Item = extractItem(query)
	res.MaxPrice = extractBudget(query)
	res.MaxTimeMinutes = extractMinutes(query)
	res.Location = extractLocation(query)

	p.logger.Debug("query parsed", map[string]interface{}{
		"query":    query,
		"category": res.Category,
		"item":     res.Item,
		"location": res.Location,
		"hits":     res.KeywordHits,
	})
	return res, nil
}

// detectCategory scores every category by whole-word keyword hits. Ties go
// to the earlier category in models.Categories.
func detectCategory(query string) (models.Category, int) {
	padded := " " + strings.TrimSpace(nonWord.ReplaceAllString(strings.ToLower(query), " ")) + " "

	var best models.Category
	bestHits := 0
	for _, c := range models.Categories {
		hits := 0
		for _, kw := range categoryKeywords[c] {
			if strings.Contains(padded, " "+kw+" ") {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = c, hits
		}
	}
	return best, bestHits
}

func extractBudget(query string) *float64 {
	for _, re := range budgetPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(query, -1) {
			if minutesAfter.MatchString(query[m[1]:]) {
				continue
			}
			v, err := strconv.ParseFloat(query[m[2]:m[3]], 64)
			if err == nil && v > 0 {
				return &v
			}
		}
	}
	return nil
}

func extractMinutes(query string) *int {
	for _, re := range timePatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			v, err := strconv.Atoi(m[1])
			if err == nil && v > 0 {
				return &v
			}
		}
	}
	return nil
}

func extractLocation(query string) string {
	for _, re := range locationPatterns {
		if m := re.FindStringSubmatch(query); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func extractItem(query string) string {
	cleaned := strings.TrimSpace(preamble.ReplaceAllString(query, ""))
	cleaned = suffix.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(superlative.ReplaceAllString(cleaned, ""))
	if cleaned == "" {
		return query
	}
	return cleaned
}
