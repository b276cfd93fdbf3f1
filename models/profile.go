package models

// Profile is the document served by GET /auth/profile.
type Profile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	DOB           string   `json:"dob,omitempty"`
	Sex           string   `json:"sex,omitempty"`
	Height        *float64 `json:"height,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	BloodGroup    string   `json:"bloodGroup,omitempty"`
	ActivityLevel string   `json:"activityLevel,omitempty"`
}

// Complete reports whether every health field of the profile is filled in.
func (p Profile) Complete() bool {
	return p.DOB != "" && p.Sex != "" && p.Height != nil && p.Weight != nil &&
		p.BloodGroup != "" && p.ActivityLevel != ""
}

// ProfilePatch is the body of PATCH /auth. Nil fields are left untouched.
type ProfilePatch struct {
	Name          *string  `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Email         *string  `json:"email,omitempty" validate:"omitempty,email"`
	DOB           *string  `json:"dob,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Sex           *string  `json:"sex,omitempty" validate:"omitempty,oneof=male female other"`
	Height        *float64 `json:"height,omitempty" validate:"omitempty,gt=0,lte=300"`
	Weight        *float64 `json:"weight,omitempty" validate:"omitempty,gt=0,lte=600"`
	BloodGroup    *string  `json:"bloodGroup,omitempty" validate:"omitempty,oneof=A+ A- B+ B- AB+ AB- O+ O-"`
	ActivityLevel *string  `json:"activityLevel,omitempty" validate:"omitempty,oneof=sedentary light moderate active very_active"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.DOB == nil && p.Sex == nil &&
		p.Height == nil && p.Weight == nil && p.BloodGroup == nil && p.ActivityLevel == nil
}
