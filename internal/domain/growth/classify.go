package growth

// Classification labels returned for scores that could not be assessed.
const (
	ClassInvalidInput     = "Invalid input data"
	ClassNoReferenceData  = "No reference data available"
	ClassInvalidReference = "Invalid reference data"
)

// Weight-for-age band labels. The uniform classifier applies them to every
// measurement type.
const (
	ClassSevereUnderweight   = "Severe Underweight"
	ClassModerateUnderweight = "Moderate Underweight"
	ClassMildUnderweight     = "Mild Underweight"
	ClassNormalWeight        = "Normal Weight"
	ClassOverweight          = "Overweight"
	ClassObese               = "Obese"
	ClassSeverelyObese       = "Severely Obese"
)

// Height-for-age and head-circumference-for-age labels used by the
// indicator classifier.
const (
	ClassSevereStunting   = "Severe Stunting"
	ClassModerateStunting = "Moderate Stunting"
	ClassNormalHeight     = "Normal Height"
	ClassTallStature      = "Tall Stature"
	ClassSevereMicro      = "Severe Microcephaly"
	ClassMicrocephaly     = "Microcephaly"
	ClassNormalHead       = "Normal Head Circumference"
	ClassMacrocephaly     = "Macrocephaly"
)

// Band is a classified Z-score.
type Band struct {
	Classification string
	Severity       Severity
	Recommendation string
}

// Classifier maps a rounded Z-score to a clinical band.
type Classifier interface {
	Classify(t MeasurementType, z float64) Band
}

// UniformClassifier applies the weight-for-age bands to all measurement types.
type UniformClassifier struct{}

func (UniformClassifier) Classify(_ MeasurementType, z float64) Band {
	return weightForAgeBand(z)
}

func weightForAgeBand(z float64) Band {
	switch {
	case z < -3:
		return Band{ClassSevereUnderweight, SeveritySevere,
			"Urgent referral for nutritional assessment and medical evaluation."}
	case z < -2:
		return Band{ClassModerateUnderweight, SeverityModerate,
			"Nutritional counseling and close monitoring of growth are recommended."}
	case z < -1:
		return Band{ClassMildUnderweight, SeverityMild,
			"Monitor growth closely and review feeding practices."}
	case z <= 1:
		return Band{ClassNormalWeight, SeverityNormal,
			"Growth is within the normal range. Continue routine monitoring."}
	case z <= 2:
		return Band{ClassOverweight, SeverityMild,
			"Review diet and physical activity; monitor growth trend."}
	case z <= 3:
		return Band{ClassObese, SeverityModerate,
			"Lifestyle intervention and nutritional counseling are recommended."}
	default:
		return Band{ClassSeverelyObese, SeveritySevere,
			"Refer for specialist evaluation of obesity and related conditions."}
	}
}

// IndicatorClassifier uses the WHO cut-offs specific to each indicator:
// weight keeps the weight-for-age bands, height and head circumference use
// stunting and microcephaly bands.
type IndicatorClassifier struct{}

func (IndicatorClassifier) Classify(t MeasurementType, z float64) Band {
	switch t {
	case Height:
		switch {
		case z < -3:
			return Band{ClassSevereStunting, SeveritySevere,
				"Refer for evaluation of chronic malnutrition or underlying disease."}
		case z < -2:
			return Band{ClassModerateStunting, SeverityModerate,
				"Assess nutrition and recheck length/height within 1-3 months."}
		case z <= 3:
			return Band{ClassNormalHeight, SeverityNormal,
				"Linear growth is within the normal range. Continue routine monitoring."}
		default:
			return Band{ClassTallStature, SeverityMild,
				"Consider endocrine evaluation if tall stature is disproportionate to parental height."}
		}
	case HeadCircumference:
		switch {
		case z < -3:
			return Band{ClassSevereMicro, SeveritySevere,
				"Urgent neurological and developmental evaluation is recommended."}
		case z < -2:
			return Band{ClassMicrocephaly, SeverityModerate,
				"Refer for neurodevelopmental assessment and repeat measurement."}
		case z <= 2:
			return Band{ClassNormalHead, SeverityNormal,
				"Head growth is within the normal range. Continue routine monitoring."}
		case z <= 3:
			return Band{ClassMacrocephaly, SeverityModerate,
				"Repeat measurement and consider neuroimaging if growth is accelerating."}
		default:
			return Band{ClassMacrocephaly, SeveritySevere,
				"Urgent evaluation for hydrocephalus or other intracranial pathology."}
		}
	}
	return weightForAgeBand(z)
}

// ClassifierByName returns the classifier configured by name. Unknown names
// fall back to the uniform classifier.
func ClassifierByName(name string) Classifier {
	if name == "indicator" {
		return IndicatorClassifier{}
	}
	return UniformClassifier{}
}
