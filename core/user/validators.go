package user

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/shule/core"
)

var (
	subjectRoleTag  = "subjectrole"
	subjectRoleText = "subject is only allowed for teachers"

	classRoleTag  = "classrole"
	classRoleText = "classId is only allowed for students"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newUserStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, subjectRoleTag, subjectRoleText)
	core.RegisterCustomTranslation(validate, translator, classRoleTag, classRoleText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// newUserStructValidation checks that the role-specific fields match the role
// and that the password does not resemble the other attributes.
func newUserStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok {
		return
	}
	role := Role(nu.Role)
	if nu.Subject != "" && role != RoleTeacher {
		sl.ReportError(nu.Subject, "subject", "Subject", subjectRoleTag, "")
	}
	if nu.ClassID != "" && role != RoleStudent {
		sl.ReportError(nu.ClassID, "classId", "ClassID", classRoleTag, "")
	}
	if len(nu.Password) >= 6 && passwordTooSimilar(nu.Password, nu.Name, nu.Email) {
		sl.ReportError(nu.Password, "password", "Password", pwdAttrSimTag, "")
	}
}

// passwordTooSimilar compares pwd with each user attribute, character-wise.
func passwordTooSimilar(pwd string, attrs ...string) bool {
	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		if local := strings.SplitN(attr, "@", 2)[0]; local != "" {
			attr = local
		}
		m := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), ""))
		if m.QuickRatio() >= pwdMaxSim {
			return true
		}
	}
	return false
}
