package service

import "github.com/noah-isme/campus-records-api/internal/models"

type linkChanges struct {
	students []models.Student
	parents  []models.ParentProfile
}

// relink makes Student.ParentID and ParentProfile.StudentID agree after studentID
// is linked to parentID. Either id may be empty to unlink the other side. Any
// previous partner of either side is released. Only records that change are returned.
func relink(students []models.Student, parents []models.ParentProfile, studentID, parentID string) linkChanges {
	var changes linkChanges
	for _, student := range students {
		want := student.ParentID
		switch {
		case studentID != "" && student.ID == studentID:
			want = parentID
		case parentID != "" && student.ParentID == parentID:
			want = ""
		}
		if want != student.ParentID {
			student.ParentID = want
			changes.students = append(changes.students, student)
		}
	}
	for _, parent := range parents {
		want := parent.StudentID
		switch {
		case parentID != "" && parent.ID == parentID:
			want = studentID
		case studentID != "" && parent.StudentID == studentID:
			want = ""
		}
		if want != parent.StudentID {
			parent.StudentID = want
			changes.parents = append(changes.parents, parent)
		}
	}
	return changes
}

func findParent(parents []models.ParentProfile, id string) (models.ParentProfile, bool) {
	for _, parent := range parents {
		if parent.ID == id {
			return parent, true
		}
	}
	return models.ParentProfile{}, false
}
