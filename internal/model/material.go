package model

type MaterialKind string

const (
	MaterialAssignment MaterialKind = "assignment"
	MaterialUpload     MaterialKind = "material"
)

// Material is a source document owned by the course-content service. The
// quiz engine only reads it when drafting questions.
type Material struct {
	UUIDBase
	SubjectID   string       `gorm:"size:64;index;not null" json:"subjectId"`
	Kind        MaterialKind `gorm:"size:20;not null" json:"kind"`
	Title       string       `gorm:"size:255" json:"title"`
	Body        string       `gorm:"type:text" json:"body"`
	ObjectKey   string       `gorm:"size:255" json:"objectKey"`
	ContentType string       `gorm:"size:100" json:"contentType"`
}

func (Material) TableName() string {
	return "subject_materials"
}
