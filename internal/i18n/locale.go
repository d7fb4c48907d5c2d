// Package i18n holds the user-facing text of the bot for its supported locales.
package i18n

import "strings"

// Locale is one of the supported user-interface languages.
type Locale uint8

const (
	EN Locale = iota
	AR
	FR
	numLocales
)

func (l Locale) String() string {
	switch l {
	case AR:
		return "ar"
	case FR:
		return "fr"
	default:
		return "en"
	}
}

// Resolve maps a sender language code (e.g. "ar-EG", "fr") to a Locale.
// Unknown or empty codes resolve to EN.
func Resolve(code string) Locale {
	switch {
	case strings.HasPrefix(code, "ar"):
		return AR
	case strings.HasPrefix(code, "fr"):
		return FR
	default:
		return EN
	}
}

// Key identifies a piece of user-facing text.
type Key uint8

const (
	Welcome Key = iota
	Processing
	BuyButton
	ErrorHeader
	CauseFetch
	CauseNormalize
	CauseIdentify
	CauseEmptyLabel
	CauseUnknown
	SeeLogs
	QueryTooShort
	numKeys
)

var texts = [numKeys][numLocales]string{
	Welcome: {
		EN: "👋 Welcome\n📸 Send a product image to identify it",
		AR: "👋 مرحباً\n📸 أرسل صورة منتج وسأعطيك اسمه مع زر شراء من أمازون",
		FR: "👋 Bienvenue\n📸 Envoyez une image du produit",
	},
	Processing: {
		EN: "⏳ Analyzing...",
		AR: "⏳ جاري التحليل...",
		FR: "⏳ Analyse...",
	},
	BuyButton: {
		EN: "🛒 Buy on Amazon",
		AR: "🛒 شراء من أمازون",
		FR: "🛒 Acheter sur Amazon",
	},
	ErrorHeader: {
		EN: "❌ Error occurred",
		AR: "❌ حدث خطأ",
		FR: "❌ Erreur",
	},
	CauseFetch: {
		EN: "Could not download the photo.",
		AR: "تعذر تنزيل الصورة.",
		FR: "Impossible de télécharger la photo.",
	},
	CauseNormalize: {
		EN: "The image could not be read.",
		AR: "تعذرت قراءة الصورة.",
		FR: "L'image n'a pas pu être lue.",
	},
	CauseIdentify: {
		EN: "The product recognition service failed.",
		AR: "فشلت خدمة التعرف على المنتج.",
		FR: "Le service de reconnaissance du produit a échoué.",
	},
	CauseEmptyLabel: {
		EN: "No product could be recognized in the image.",
		AR: "لم يتم التعرف على أي منتج في الصورة.",
		FR: "Aucun produit n'a été reconnu dans l'image.",
	},
	CauseUnknown: {
		EN: "Unexpected failure.",
		AR: "خطأ غير متوقع.",
		FR: "Échec inattendu.",
	},
	SeeLogs: {
		EN: "Details were logged on the server (ref %s).",
		AR: "تم تسجيل التفاصيل على الخادم (المرجع %s).",
		FR: "Les détails ont été journalisés sur le serveur (réf. %s).",
	},
	QueryTooShort: {
		EN: "❗ Please type a clearer product name.",
		AR: "❗ اكتب اسم منتج أوضح.",
		FR: "❗ Indiquez un nom de produit plus précis.",
	},
}

// Text returns the text for key in locale l, falling back to English.
func Text(k Key, l Locale) string {
	if k >= numKeys {
		return ""
	}
	if l >= numLocales {
		l = EN
	}
	return texts[k][l]
}
