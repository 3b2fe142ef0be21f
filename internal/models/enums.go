package models

// Status is the reading status of a book
type Status string

const (
	StatusWishlist  Status = "WISHLIST"
	StatusReading   Status = "READING"
	StatusCompleted Status = "COMPLETED"
)

// Statuses lists every status in display order
var Statuses = []Status{StatusWishlist, StatusReading, StatusCompleted}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	switch s {
	case StatusWishlist, StatusReading, StatusCompleted:
		return true
	}
	return false
}

// Label returns a human readable label
func (s Status) Label() string {
	switch s {
	case StatusWishlist:
		return "Wishlist"
	case StatusReading:
		return "Reading"
	case StatusCompleted:
		return "Completed"
	}
	return string(s)
}

// Genre is the category of a book
type Genre string

const (
	GenreFiction        Genre = "FICTION"
	GenreNonFiction     Genre = "NON_FICTION"
	GenreFantasy        Genre = "FANTASY"
	GenreScienceFiction Genre = "SCIENCE_FICTION"
	GenreMystery        Genre = "MYSTERY"
	GenreThriller       Genre = "THRILLER"
	GenreRomance        Genre = "ROMANCE"
	GenreHorror         Genre = "HORROR"
	GenreBiography      Genre = "BIOGRAPHY"
	GenreHistory        Genre = "HISTORY"
	GenreScience        Genre = "SCIENCE"
	GenrePhilosophy     Genre = "PHILOSOPHY"
	GenrePoetry         Genre = "POETRY"
	GenreSelfHelp       Genre = "SELF_HELP"
	GenreChildren       Genre = "CHILDREN"
	GenreYoungAdult     Genre = "YOUNG_ADULT"
	GenreClassics       Genre = "CLASSICS"
	GenreComics         Genre = "COMICS"
	GenreOther          Genre = "OTHER"
)

// Genres lists every genre in display order
var Genres = []Genre{
	GenreFiction, GenreNonFiction, GenreFantasy, GenreScienceFiction, GenreMystery,
	GenreThriller, GenreRomance, GenreHorror, GenreBiography, GenreHistory,
	GenreScience, GenrePhilosophy, GenrePoetry, GenreSelfHelp, GenreChildren,
	GenreYoungAdult, GenreClassics, GenreComics, GenreOther,
}

var genreLabels = map[Genre]string{
	GenreFiction:        "Fiction",
	GenreNonFiction:     "Non-fiction",
	GenreFantasy:        "Fantasy",
	GenreScienceFiction: "Science fiction",
	GenreMystery:        "Mystery",
	GenreThriller:       "Thriller",
	GenreRomance:        "Romance",
	GenreHorror:         "Horror",
	GenreBiography:      "Biography",
	GenreHistory:        "History",
	GenreScience:        "Science",
	GenrePhilosophy:     "Philosophy",
	GenrePoetry:         "Poetry",
	GenreSelfHelp:       "Self-help",
	GenreChildren:       "Children",
	GenreYoungAdult:     "Young adult",
	GenreClassics:       "Classics",
	GenreComics:         "Comics",
	GenreOther:          "Other",
}

// Valid reports whether g is a known genre
func (g Genre) Valid() bool {
	_, ok := genreLabels[g]
	return ok
}

// Label returns a human readable label
func (g Genre) Label() string {
	if label, ok := genreLabels[g]; ok {
		return label
	}
	return string(g)
}

// Language is the language a book is written in
type Language string

const (
	LanguageEnglish    Language = "EN"
	LanguageSpanish    Language = "ES"
	LanguageFrench     Language = "FR"
	LanguageGerman     Language = "DE"
	LanguageItalian    Language = "IT"
	LanguagePortuguese Language = "PT"
	LanguageRussian    Language = "RU"
	LanguageJapanese   Language = "JA"
	LanguageChinese    Language = "ZH"
	LanguageOther      Language = "OTHER"
)

// Languages lists every language in display order
var Languages = []Language{
	LanguageEnglish, LanguageSpanish, LanguageFrench, LanguageGerman, LanguageItalian,
	LanguagePortuguese, LanguageRussian, LanguageJapanese, LanguageChinese, LanguageOther,
}

var languageLabels = map[Language]string{
	LanguageEnglish:    "English",
	LanguageSpanish:    "Spanish",
	LanguageFrench:     "French",
	LanguageGerman:     "German",
	LanguageItalian:    "Italian",
	LanguagePortuguese: "Portuguese",
	LanguageRussian:    "Russian",
	LanguageJapanese:   "Japanese",
	LanguageChinese:    "Chinese",
	LanguageOther:      "Other",
}

// Valid reports whether l is a known language
func (l Language) Valid() bool {
	_, ok := languageLabels[l]
	return ok
}

// Label returns a human readable label
func (l Language) Label() string {
	if label, ok := languageLabels[l]; ok {
		return label
	}
	return string(l)
}

// LanguageFromISO639 maps ISO 639-1 and 639-2 codes (as used by metadata
// services) to a Language. Unknown codes map to LanguageOther.
func LanguageFromISO639(code string) Language {
	switch code {
	case "en", "eng":
		return LanguageEnglish
	case "es", "spa":
		return LanguageSpanish
	case "fr", "fre", "fra":
		return LanguageFrench
	case "de", "ger", "deu":
		return LanguageGerman
	case "it", "ita":
		return LanguageItalian
	case "pt", "por":
		return LanguagePortuguese
	case "ru", "rus":
		return LanguageRussian
	case "ja", "jpn":
		return LanguageJapanese
	case "zh", "chi", "zho":
		return LanguageChinese
	}
	return LanguageOther
}
