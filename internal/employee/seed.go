package employee

// Seed returns the demo directory served when no other source is configured.
func Seed() []Employee {
	return []Employee{
		{
			ID:             1,
			Name:           "Alice Johnson",
			Skills:         []string{"React", "JavaScript", "CSS", "HTML"},
			Qualifications: []string{"B.Tech CS", "Full Stack Developer"},
			Strength:       95,
			Availability:   AvailabilityAvailable,
			Team:           "Frontend",
		},
		{
			ID:             2,
			Name:           "Bob Smith",
			Skills:         []string{"Python", "FastAPI", "PostgreSQL", "Docker"},
			Qualifications: []string{"M.Tech", "Backend Developer"},
			Strength:       88,
			Availability:   AvailabilityPartiallyAvailable,
			Team:           "Backend",
		},
		{
			ID:             3,
			Name:           "Carol Davis",
			Skills:         []string{"React", "Node.js", "MongoDB", "GraphQL"},
			Qualifications: []string{"B.Tech IT", "Full Stack Developer"},
			Strength:       92,
			Availability:   AvailabilityAvailable,
			Team:           "Full Stack",
		},
		{
			ID:             4,
			Name:           "David Wilson",
			Skills:         []string{"DevOps", "Kubernetes", "AWS", "Terraform"},
			Qualifications: []string{"Cloud Architect Certification", "DevOps Engineer"},
			Strength:       85,
			Availability:   AvailabilityNotAvailable,
			Team:           "Infrastructure",
		},
		{
			ID:             5,
			Name:           "Emma Taylor",
			Skills:         []string{"Machine Learning", "Python", "TensorFlow", "Data Analysis"},
			Qualifications: []string{"M.S. Data Science", "ML Engineer"},
			Strength:       90,
			Availability:   AvailabilityAvailable,
			Team:           "AI/ML",
		},
		{
			ID:             6,
			Name:           "Carol Davis Test",
			Skills:         []string{"React", "Node.js", "MongoDB", "GraphQL"},
			Qualifications: []string{"B.Tech IT", "Full Stack Developer"},
			Strength:       92,
			Availability:   "not Available",
			Team:           "Full Stack",
		},
	}
}
