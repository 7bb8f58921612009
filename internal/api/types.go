package api

// Option is one of the four fixed answer labels a question offers.
type Option string

const (
	OptionA Option = "a"
	OptionB Option = "b"
	OptionC Option = "c"
	OptionD Option = "d"
)

// Options lists the labels in display order.
var Options = []Option{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether o is one of the four known labels.
func (o Option) Valid() bool {
	switch o {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Program is a named track (NDA, SSP, Scholarship, ...) grouping tests.
type Program struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      bool   `json:"status"`
	TestCount   int    `json:"test_count"`
}

// Test is a timed set of questions belonging to a program.
type Test struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ProgramID   int    `json:"program_id"`
	// Duration is the allowed time in minutes.
	Duration   int  `json:"duration"`
	TotalMarks int  `json:"total_marks"`
	Status     bool `json:"status"`
}

// Question carries the full record the backend exposes for one question,
// including the correct option. Scoring happens client-side against it once
// the submission is accepted.
type Question struct {
	ID            int    `json:"id"`
	TestID        int    `json:"test_id"`
	QuestionText  string `json:"question_text"`
	QuestionImage string `json:"question_image"`
	OptionA       string `json:"option_a"`
	OptionB       string `json:"option_b"`
	OptionC       string `json:"option_c"`
	OptionD       string `json:"option_d"`
	CorrectOption Option `json:"correct_option"`
	Marks         int    `json:"marks"`
}

// OptionText returns the text for the given label.
func (q Question) OptionText(o Option) string {
	switch o {
	case OptionA:
		return q.OptionA
	case OptionB:
		return q.OptionB
	case OptionC:
		return q.OptionC
	case OptionD:
		return q.OptionD
	}
	return ""
}

// Student is the profile record returned by login/register/profile.
type Student struct {
	ID              int    `json:"id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	DOB             string `json:"dob"`
	Mobile          string `json:"mobile"`
	AlternateMobile string `json:"alternate_mobile"`
	Qualification   string `json:"qualification"`
}

// AuthData is the payload of a successful login or registration.
type AuthData struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// AccessStatus answers "may this student take that test".
type AccessStatus struct {
	HasAccess bool `json:"has_access"`
}

// EnrollmentRequest is one pending/processed enrollment request of the
// current student.
type EnrollmentRequest struct {
	ID             int    `json:"id"`
	TestID         int    `json:"test_id"`
	RequestMessage string `json:"request_message"`
	Status         string `json:"status"`
}

// SubmittedAnswer is a question/option pair sent on submit.
type SubmittedAnswer struct {
	QuestionID     int    `json:"question_id"`
	SelectedOption Option `json:"selected_option"`
}

// TestResult is one graded submission from my-results.
type TestResult struct {
	ID          int    `json:"id"`
	TestID      int    `json:"test_id"`
	TestTitle   string `json:"test_title"`
	Score       int    `json:"score"`
	TotalMarks  int    `json:"total_marks"`
	Status      string `json:"status"`
	SubmittedAt string `json:"submitted_at"`
}

// Enquiry is the education-section contact form.
type Enquiry struct {
	FullName     string `json:"full_name" validate:"required"`
	MobileNumber string `json:"mobile_number" validate:"required,len=10,numeric"`
	EmailAddress string `json:"email_address,omitempty" validate:"omitempty,email"`
	Message      string `json:"message,omitempty"`
	ProgramName  string `json:"program_name" validate:"required"`
}
