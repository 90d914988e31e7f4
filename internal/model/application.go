package model

// Application holds the job-style application form. It is stored as JSON in
// object storage until processed and embedded into User afterwards.
type Application struct {
	Name             string      `gorm:"size:200;not null" json:"name" validate:"required,max=200"`
	Email            string      `gorm:"size:100;uniqueIndex;not null" json:"email" validate:"required,email,max=100"`
	Gender           string      `gorm:"size:8" json:"gender" validate:"required,oneof=male female other"`
	PrimaryPhone     string      `gorm:"size:50" json:"primaryPhone" validate:"required,max=50"`
	SecondaryPhone   string      `gorm:"size:50" json:"secondaryPhone,omitempty" validate:"omitempty,max=50"`
	CurrentCity      string      `gorm:"size:100" json:"currentCity" validate:"required,max=100"`
	PermanentCity    string      `gorm:"size:100" json:"permanentCity" validate:"required,max=100"`
	YearsOfEducation string      `gorm:"size:2" json:"yearsOfEducation" validate:"required,oneof=12 14 16 18"`
	HighestDegree    string      `gorm:"size:16" json:"highestDegree" validate:"required,oneof=HSSC A-Levels BS BSc MS MSc"`
	Majors           string      `gorm:"size:150" json:"majors" validate:"required,max=150"`
	University       string      `gorm:"size:200" json:"university" validate:"required,max=200"`
	YearOfCompletion string      `gorm:"size:10" json:"yearOfCompletion" validate:"required,max=10"`
	TotalExperience  string      `gorm:"size:10" json:"totalExperience" validate:"required,max=10"`
	ExperienceUnit   string      `gorm:"size:8" json:"experienceUnit" validate:"required,oneof=months years"`
	Experiences      Experiences `json:"experiences,omitempty" validate:"omitempty,dive"`
	WorkingDays      string      `gorm:"size:3" json:"workingDays" validate:"required,oneof=yes no"`
	Weekends         string      `gorm:"size:3" json:"weekends" validate:"required,oneof=yes no"`
	OnsiteSessions   string      `gorm:"size:3" json:"onsiteSessions" validate:"required,oneof=yes no"`
	RemoteSessions   string      `gorm:"size:3" json:"remoteSessions" validate:"required,oneof=yes no"`
	BlueTeam         bool        `gorm:"default:false" json:"blueTeam"`
	RedTeam          bool        `gorm:"default:false" json:"redTeam"`
	GRC              bool        `gorm:"column:grc;default:false" json:"grc"`
	Consent          bool        `gorm:"default:false" json:"consent" validate:"eq=true"`
}

// Submission is the object written to storage for a pending application
type Submission struct {
	Application
	SubmittedAt string `json:"submittedAt"`
	Processed   bool   `json:"processed"`
	ProcessedAt string `json:"processedAt,omitempty"`
}
