package client

import (
	"sort"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/colegio/core"
	"github.com/trezcool/colegio/core/student"
	"github.com/trezcool/colegio/core/user"
)

var (
	formValidate   *validator.Validate
	formTranslator ut.Translator
	formInit       sync.Once
)

// FormErrors maps the fields of a rejected form to their messages.
type FormErrors map[string]string

func (fe FormErrors) Error() string {
	fields := make([]string, 0, len(fe))
	for fld := range fe {
		fields = append(fields, fld)
	}
	sort.Strings(fields)
	if len(fields) == 0 {
		return ""
	}
	return fields[0] + ": " + fe[fields[0]]
}

func validateForm(form interface{}) error {
	formInit.Do(func() {
		_en := en.New()
		uni := ut.New(_en, _en)
		formTranslator, _ = uni.GetTranslator("en")
		formValidate = validator.New()
		core.InitValidators(formValidate, formTranslator)
	})

	err := formValidate.Struct(form)
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return FormErrors(core.TranslateValidationErrors(vErrs, formTranslator))
	}
	return err
}

type (
	LoginForm struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	PasswordResetForm struct {
		Email string `json:"email" validate:"required,email"`
	}

	// UserForm is the form an admin fills to create a user.
	UserForm struct {
		Name            string   `json:"name" validate:"required"`
		Username        string   `json:"username" validate:"omitempty,min=4,alphanum_"`
		Email           string   `json:"email" validate:"required,email"`
		Password        string   `json:"password" validate:"required,min=8"`
		PasswordConfirm string   `json:"password_confirm" validate:"required,eqfield=Password"`
		Roles           []string `json:"roles" validate:"required,min=1"`
	}

	StudentForm struct {
		FirstName string `json:"first_name" validate:"required,max=150"`
		LastName  string `json:"last_name" validate:"required,max=150"`
		DNI       string `json:"dni" validate:"required,dni"`
		CourseID  string `json:"course_id" validate:"omitempty,uuid"`
		TutorID   string `json:"tutor_id" validate:"omitempty,uuid"`
		UserID    string `json:"user_id" validate:"omitempty,uuid"`
	}

	ProfileForm struct {
		Name            string `json:"name" validate:"required"`
		Password        string `json:"password" validate:"omitempty,min=8"`
		PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
	}
)

func (f *LoginForm) Validate() error {
	f.Username = core.CleanString(f.Username, true /* lower */)
	return validateForm(f)
}

func (f *PasswordResetForm) Validate() error {
	f.Email = core.CleanString(f.Email, true /* lower */)
	return validateForm(f)
}

func (f *UserForm) Validate() error {
	f.Name = core.CleanString(f.Name)
	f.Username = core.CleanString(f.Username, true /* lower */)
	f.Email = core.CleanString(f.Email, true /* lower */)
	return validateForm(f)
}

func (f UserForm) newUser() user.NewUser {
	return user.NewUser{
		Name:            f.Name,
		Username:        f.Username,
		Email:           f.Email,
		Password:        f.Password,
		PasswordConfirm: f.PasswordConfirm,
		Roles:           f.Roles,
	}
}

func (f *StudentForm) Validate() error {
	f.FirstName = core.CleanString(f.FirstName)
	f.LastName = core.CleanString(f.LastName)
	f.DNI = core.CleanString(f.DNI)
	return validateForm(f)
}

func (f StudentForm) newStudent() student.NewStudent {
	return student.NewStudent{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		DNI:       f.DNI,
		CourseID:  f.CourseID,
		TutorID:   f.TutorID,
		UserID:    f.UserID,
	}
}

func (f *ProfileForm) Validate() error {
	f.Name = core.CleanString(f.Name)
	return validateForm(f)
}

func (f ProfileForm) updateProfile() user.UpdateProfile {
	return user.UpdateProfile{Name: f.Name, Password: f.Password, PasswordConfirm: f.PasswordConfirm}
}
