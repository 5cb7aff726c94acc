package language

import (
	"strings"

	xlanguage "golang.org/x/text/language"
)

// AutoCode is the language hint that asks the backend to detect the language.
const AutoCode = "auto"

// Language represents a supported transcription language
type Language struct {
	Code       string // ISO 639-1 code (e.g., "en", "es", "zh")
	Name       string // English name (e.g., "English", "Spanish")
	NativeName string // Native name (e.g., "English", "Espanol", "中文")
}

// Auto represents auto-detection
var Auto = Language{Code: AutoCode, Name: "Auto-detect", NativeName: ""}

// whisper's supported languages
var languages = []Language{
	{Code: "af", Name: "Afrikaans", NativeName: "Afrikaans"},
	{Code: "ar", Name: "Arabic", NativeName: "العربية"},
	{Code: "hy", Name: "Armenian", NativeName: "Հայերեն"},
	{Code: "az", Name: "Azerbaijani", NativeName: "Azərbaycan"},
	{Code: "be", Name: "Belarusian", NativeName: "Беларуская"},
	{Code: "bs", Name: "Bosnian", NativeName: "Bosanski"},
	{Code: "bg", Name: "Bulgarian", NativeName: "Български"},
	{Code: "ca", Name: "Catalan", NativeName: "Català"},
	{Code: "zh", Name: "Chinese", NativeName: "中文"},
	{Code: "hr", Name: "Croatian", NativeName: "Hrvatski"},
	{Code: "cs", Name: "Czech", NativeName: "Čeština"},
	{Code: "da", Name: "Danish", NativeName: "Dansk"},
	{Code: "nl", Name: "Dutch", NativeName: "Nederlands"},
	{Code: "en", Name: "English", NativeName: "English"},
	{Code: "et", Name: "Estonian", NativeName: "Eesti"},
	{Code: "fi", Name: "Finnish", NativeName: "Suomi"},
	{Code: "fr", Name: "French", NativeName: "Français"},
	{Code: "gl", Name: "Galician", NativeName: "Galego"},
	{Code: "de", Name: "German", NativeName: "Deutsch"},
	{Code: "el", Name: "Greek", NativeName: "Ελληνικά"},
	{Code: "he", Name: "Hebrew", NativeName: "עברית"},
	{Code: "hi", Name: "Hindi", NativeName: "हिन्दी"},
	{Code: "hu", Name: "Hungarian", NativeName: "Magyar"},
	{Code: "is", Name: "Icelandic", NativeName: "Íslenska"},
	{Code: "id", Name: "Indonesian", NativeName: "Bahasa Indonesia"},
	{Code: "it", Name: "Italian", NativeName: "Italiano"},
	{Code: "ja", Name: "Japanese", NativeName: "日本語"},
	{Code: "kn", Name: "Kannada", NativeName: "ಕನ್ನಡ"},
	{Code: "kk", Name: "Kazakh", NativeName: "Қазақ"},
	{Code: "ko", Name: "Korean", NativeName: "한국어"},
	{Code: "lv", Name: "Latvian", NativeName: "Latviešu"},
	{Code: "lt", Name: "Lithuanian", NativeName: "Lietuvių"},
	{Code: "mk", Name: "Macedonian", NativeName: "Македонски"},
	{Code: "ms", Name: "Malay", NativeName: "Bahasa Melayu"},
	{Code: "mr", Name: "Marathi", NativeName: "मराठी"},
	{Code: "mi", Name: "Maori", NativeName: "Māori"},
	{Code: "ne", Name: "Nepali", NativeName: "नेपाली"},
	{Code: "no", Name: "Norwegian", NativeName: "Norsk"},
	{Code: "fa", Name: "Persian", NativeName: "فارسی"},
	{Code: "pl", Name: "Polish", NativeName: "Polski"},
	{Code: "pt", Name: "Portuguese", NativeName: "Português"},
	{Code: "ro", Name: "Romanian", NativeName: "Română"},
	{Code: "ru", Name: "Russian", NativeName: "Русский"},
	{Code: "sr", Name: "Serbian", NativeName: "Српски"},
	{Code: "sk", Name: "Slovak", NativeName: "Slovenčina"},
	{Code: "sl", Name: "Slovenian", NativeName: "Slovenščina"},
	{Code: "es", Name: "Spanish", NativeName: "Español"},
	{Code: "sw", Name: "Swahili", NativeName: "Kiswahili"},
	{Code: "sv", Name: "Swedish", NativeName: "Svenska"},
	{Code: "tl", Name: "Tagalog", NativeName: "Tagalog"},
	{Code: "ta", Name: "Tamil", NativeName: "தமிழ்"},
	{Code: "th", Name: "Thai", NativeName: "ไทย"},
	{Code: "tr", Name: "Turkish", NativeName: "Türkçe"},
	{Code: "uk", Name: "Ukrainian", NativeName: "Українська"},
	{Code: "ur", Name: "Urdu", NativeName: "اردو"},
	{Code: "vi", Name: "Vietnamese", NativeName: "Tiếng Việt"},
	{Code: "cy", Name: "Welsh", NativeName: "Cymraeg"},
}

// quickChoices is the short list offered first in the UI language picker
var quickChoices = []string{AutoCode, "en", "es", "fr", "de", "it", "ja", "zh", "pt", "ru", "ko"}

var (
	codeIndex map[string]Language
	nameIndex map[string]Language
)

func init() {
	codeIndex = make(map[string]Language, len(languages)+1)
	nameIndex = make(map[string]Language, len(languages))
	codeIndex[AutoCode] = Auto
	for _, lang := range languages {
		codeIndex[lang.Code] = lang
		nameIndex[strings.ToLower(lang.Name)] = lang
	}
}

// FromCode returns the Language for the given code.
// Returns Auto if code is not found.
func FromCode(code string) Language {
	if lang, ok := codeIndex[Canonical(code)]; ok {
		return lang
	}
	return Auto
}

// FromName resolves an English language name ("english") or a code ("en")
// to its Language. Cloud APIs report detected languages by name.
func FromName(name string) (Language, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if lang, ok := nameIndex[key]; ok {
		return lang, true
	}
	if lang, ok := codeIndex[key]; ok && lang.Code != AutoCode {
		return lang, true
	}
	return Language{}, false
}

// Hint converts a user language hint to the value passed to a backend.
// "auto" and "" both mean detection and yield "".
func Hint(code string) string {
	code = Canonical(code)
	if code == AutoCode {
		return ""
	}
	return code
}

// List returns all supported languages (excluding Auto)
func List() []Language {
	result := make([]Language, len(languages))
	copy(result, languages)
	return result
}

// Codes returns all language codes (excluding auto)
func Codes() []string {
	codes := make([]string, len(languages))
	for i, lang := range languages {
		codes[i] = lang.Code
	}
	return codes
}

// QuickChoices returns the short picker list, auto first.
func QuickChoices() []string {
	result := make([]string, len(quickChoices))
	copy(result, quickChoices)
	return result
}

// IsValidCode returns true if the code is recognized; "" and "auto" both
// count as auto-detect.
func IsValidCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := codeIndex[Canonical(code)]
	return ok
}

// Canonical lowercases code and reduces BCP 47 tags to their base
// language, so "en-US" and "pt_BR" become "en" and "pt". Whisper's own
// codes are returned as is.
func Canonical(code string) string {
	key := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(code, "_", "-")))
	if key == "" || key == AutoCode {
		return key
	}
	if _, ok := codeIndex[key]; ok {
		return key
	}
	tag, err := xlanguage.Parse(key)
	if err != nil {
		return key
	}
	base, _ := tag.Base()
	return base.String()
}
