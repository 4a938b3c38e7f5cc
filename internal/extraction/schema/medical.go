// Package schema provides reference domain definitions that let
// cmd/worker and cmd/extractctl run out of the box. An embedding
// application is expected to register its own domains at startup the
// same way: Registry.Register is idempotent and last-writer-wins.
package schema

import "github.com/specvital/worker/internal/domain/extraction"

// MedicalRecord is a reference domain covering common fields found in
// clinical intake and discharge documents.
func MedicalRecord() extraction.DomainDefinition {
	return extraction.DomainDefinition{
		Name:                "medical_record",
		Description:         "Clinical intake, encounter and discharge documents",
		Keywords:            []string{"patient", "diagnosis", "admission", "discharge", "physician"},
		ConfidenceThreshold: 0.7,
		SubDomains: []extraction.SubDomainDefinition{
			{
				Name:        "patient",
				Description: "Patient-identifying information",
				Fields: []extraction.FieldDefinition{
					{
						Name:                "patient_name",
						Description:         "Full legal name of the patient",
						Type:                extraction.FieldTypeString,
						Required:            true,
						Unique:              true,
						ConfidenceThreshold: 0.8,
					},
					{
						Name:        "date_of_birth",
						Description: "Patient's date of birth",
						Type:        extraction.FieldTypeDate,
						Unique:      true,
					},
				},
			},
			{
				Name:        "encounter",
				Description: "Visit and diagnosis details",
				Fields: []extraction.FieldDefinition{
					{
						Name:        "admission_date",
						Description: "Date the patient was admitted",
						Type:        extraction.FieldTypeDate,
					},
					{
						Name:        "discharge_date",
						Description: "Date the patient was discharged",
						Type:        extraction.FieldTypeDate,
					},
					{
						Name:        "diagnosis",
						Description: "Primary diagnosis recorded for the encounter",
						Type:        extraction.FieldTypeString,
						ExtractionPriority: 1,
					},
					{
						Name:        "attending_physician",
						Description: "Name of the attending physician",
						Type:        extraction.FieldTypeString,
					},
					{
						Name:        "medications",
						Description: "Medications prescribed during the encounter",
						Type:        extraction.FieldTypeList,
					},
				},
			},
		},
	}
}

// Register populates reg with every reference domain this package ships.
func Register(reg *extraction.Registry) {
	reg.Register(MedicalRecord())
}
