package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owdb/wrestlebot/internal/model"
)

func fixedValidator() *Validator {
	v := New(1900)
	v.Now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return v
}

func TestWrestlerValid(t *testing.T) {
	v := fixedValidator()

	clean, ok := v.Wrestler(model.RawWrestler{
		Name:      "  Bret Hart  ",
		RealName:  "Bret Sergeant Hart",
		Aliases:   "The Hitman, The Excellence of Execution",
		Hometown:  "Calgary, Alberta",
		DebutYear: "1978",
	})
	require.True(t, ok)
	assert.Equal(t, "Bret Hart", clean.Name)
	assert.Equal(t, "bret-hart", clean.Slug)
	assert.Equal(t, 1978, clean.DebutYear)
	assert.Equal(t, []string{"The Hitman", "The Excellence of Execution"}, clean.AliasList())
}

func TestWrestlerMissingName(t *testing.T) {
	v := fixedValidator()

	_, ok := v.Wrestler(model.RawWrestler{Name: "   ", DebutYear: "1990"})
	assert.False(t, ok)
}

func TestWrestlerIdempotent(t *testing.T) {
	v := fixedValidator()

	raw := model.RawWrestler{
		Name:      " Stone Cold Steve Austin ",
		Aliases:   "The Rattlesnake",
		DebutYear: "1989",
		About:     strings.Repeat("x", 2000),
	}
	first, ok := v.Wrestler(raw)
	require.True(t, ok)

	again := model.RawWrestler{
		Name:      first.Name,
		RealName:  first.RealName,
		Aliases:   first.Aliases,
		Hometown:  first.Hometown,
		DebutYear: "1989",
		About:     first.About,
	}
	second, ok := v.Wrestler(again)
	require.True(t, ok)
	assert.Equal(t, first, second)
}

func TestYearBounds(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"valid", "1978", 1978},
		{"floor", "1900", 1900},
		{"below floor", "1850", 0},
		{"next year allowed", "2025", 2025},
		{"too far future", "2030", 0},
		{"garbage", "circa 1978", 0},
		{"empty", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.Year(tc.raw))
		})
	}
}

func TestEventDateRequired(t *testing.T) {
	v := fixedValidator()

	_, ok := v.Event(model.RawEvent{Name: "Bad Blood", Date: "2024-13-40"})
	assert.False(t, ok)

	_, ok = v.Event(model.RawEvent{Name: "Bad Blood"})
	assert.False(t, ok)

	clean, ok := v.Event(model.RawEvent{
		Name:          "WrestleMania X",
		Date:          "1994-03-20",
		VenueName:     "Madison Square Garden",
		PromotionName: "WWF",
		Attendance:    "18,065",
	})
	require.True(t, ok)
	assert.Equal(t, "1994-03-20", clean.Date)
	assert.Equal(t, "wrestlemania-x-1994", clean.Slug)
	assert.Equal(t, 18065, clean.Attendance)
}

func TestPromotionWebsiteScheme(t *testing.T) {
	v := fixedValidator()

	clean, ok := v.Promotion(model.RawPromotion{Name: "AEW", Website: "javascript:alert(1)"})
	require.True(t, ok)
	assert.Empty(t, clean.Website)

	clean, ok = v.Promotion(model.RawPromotion{Name: "AEW", Website: "https://www.allelitewrestling.com"})
	require.True(t, ok)
	assert.Equal(t, "https://www.allelitewrestling.com", clean.Website)
}

func TestISBN(t *testing.T) {
	v := fixedValidator()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"isbn13 with dashes", "978-0-307-35366-1", "9780307353661"},
		{"isbn10", "0307353664", "0307353664"},
		{"isbn10 check X", "030735366X", "030735366X"},
		{"wrong length", "12345", ""},
		{"letters", "97803O7353661", ""},
		{"X not last", "03073X3664", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, v.ISBN(tc.raw))
		})
	}
}

func TestStringCaps(t *testing.T) {
	v := fixedValidator()

	clean, ok := v.Wrestler(model.RawWrestler{
		Name:    strings.Repeat("a", 300),
		Aliases: strings.Repeat("b", 1500),
		About:   strings.Repeat("c", 1500),
	})
	require.True(t, ok)
	assert.Len(t, clean.Name, 255)
	assert.Len(t, clean.Aliases, 1000)
	assert.Len(t, clean.About, 1000)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "stone-cold-steve-austin", Slugify("Stone Cold Steve Austin"))
	assert.Equal(t, "n-w-o", Slugify("n.W.o!"))
	assert.Equal(t, "wrestlemania-40", Slugify("  WrestleMania 40  "))
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "stone cold steve austin", NormalizeName("Stone Cold  Steve Austin!"))
	assert.Equal(t, NormalizeName("Rob Van Dam"), NormalizeName("rob van dam"))
}

func TestSpecialTypeNormalized(t *testing.T) {
	v := fixedValidator()

	clean, ok := v.Special(model.RawSpecial{Title: "Beyond the Mat", Type: "docu-drama"})
	require.True(t, ok)
	assert.Equal(t, "other", clean.Type)

	clean, ok = v.Special(model.RawSpecial{Title: "Dark Side of the Ring", Type: "series"})
	require.True(t, ok)
	assert.Equal(t, "series", clean.Type)
}

func TestBookRequiresTitle(t *testing.T) {
	v := fixedValidator()

	_, ok := v.Book(model.RawBook{Author: "Mick Foley"})
	assert.False(t, ok)

	clean, ok := v.Book(model.RawBook{
		Title:           "Have a Nice Day",
		Author:          "Mick Foley",
		PublicationYear: "1999",
		ISBN:            "978-0-06-103101-9",
	})
	require.True(t, ok)
	assert.Equal(t, 1999, clean.PublicationYear)
	assert.Equal(t, "9780061031019", clean.ISBN)
}
