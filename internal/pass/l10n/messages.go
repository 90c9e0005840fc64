// Package l10n maps workflow errors to the bilingual user-facing strings the
// alert channel displays. Only the behavioral mapping lives here; visual
// presentation is out of scope.
package l10n

import (
	"errors"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
)

// Lang selects the message language.
type Lang string

const (
	EN Lang = "en"
	AR Lang = "ar"
)

type message struct {
	en string
	ar string
}

var messages = map[error]message{
	domain.ErrConfigUnavailable: {
		en: "Service configuration is unavailable. Please try again later.",
		ar: "إعدادات الخدمة غير متوفرة. حاول مرة أخرى لاحقًا.",
	},
	domain.ErrEmptyVisitorName: {
		en: "Please enter the visitor's name.",
		ar: "يرجى إدخال اسم الزائر.",
	},
	domain.ErrGateDisabled: {
		en: "This gate is currently unavailable.",
		ar: "هذه البوابة غير متاحة حاليًا.",
	},
	domain.ErrGateRejected: {
		en: "The gate could not issue this pass. Please choose a gate and try again.",
		ar: "تعذر إصدار التصريح لهذه البوابة. يرجى اختيار بوابة والمحاولة مرة أخرى.",
	},
	domain.ErrDailyLimit: {
		en: "You have reached the maximum number of visitor passes for today.",
		ar: "لقد وصلت إلى الحد الأقصى لتصاريح الزوار لهذا اليوم.",
	},
	domain.ErrDeviceLimit: {
		en: "You have reached the maximum number of registered devices.",
		ar: "لقد وصلت إلى الحد الأقصى للأجهزة المسجلة.",
	},
	domain.ErrNotVerified: {
		en: "Your account has not been verified yet.",
		ar: "لم يتم التحقق من حسابك بعد.",
	},
	domain.ErrRentalExpired: {
		en: "Your rental period has expired.",
		ar: "انتهت فترة الإيجار الخاصة بك.",
	},
	domain.ErrEmailUnverified: {
		en: "Please verify your email address before logging in.",
		ar: "يرجى التحقق من بريدك الإلكتروني قبل تسجيل الدخول.",
	},
	domain.ErrEmailMissing: {
		en: "Please add an email address to your account.",
		ar: "يرجى إضافة بريد إلكتروني إلى حسابك.",
	},
}

var generic = message{
	en: "A network error occurred. Please check your connection and try again.",
	ar: "حدث خطأ في الشبكة. يرجى التحقق من اتصالك والمحاولة مرة أخرى.",
}

// Message returns the localized text for an error. Unmapped errors collapse
// into the generic network message.
func Message(err error, lang Lang) string {
	for sentinel, m := range messages {
		if errors.Is(err, sentinel) {
			return m.pick(lang)
		}
	}
	return generic.pick(lang)
}

// Title returns the localized alert title for an error's severity bucket.
func Title(err error, lang Lang) string {
	switch domain.Classify(err) {
	case domain.KindBusinessRule:
		if lang == AR {
			return "تنبيه"
		}
		return "Notice"
	default:
		if lang == AR {
			return "خطأ"
		}
		return "Error"
	}
}

func (m message) pick(lang Lang) string {
	if lang == AR {
		return m.ar
	}
	return m.en
}
