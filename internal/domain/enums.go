package domain

// Pacing is how quickly a story moves.
type Pacing string

// Pacing values.
const (
	PacingBreakneck  Pacing = "breakneck"
	PacingFast       Pacing = "fast"
	PacingModerate   Pacing = "moderate"
	PacingSlowBurn   Pacing = "slow-burn"
	PacingMeditative Pacing = "meditative"
	PacingVariable   Pacing = "variable"
)

// Characterization is what drives the narrative.
type Characterization string

// Characterization values.
const (
	CharacterDriven Characterization = "character-driven"
	PlotDriven      Characterization = "plot-driven"
	IdeaDriven      Characterization = "idea-driven"
	Balanced        Characterization = "balanced"
)

// EmotionalImpact is the overall emotional weight of a book.
type EmotionalImpact string

// EmotionalImpact values.
const (
	ImpactLighthearted       EmotionalImpact = "lighthearted"
	ImpactFeelGood           EmotionalImpact = "feel-good"
	ImpactBittersweet        EmotionalImpact = "bittersweet"
	ImpactEmotionallyIntense EmotionalImpact = "emotionally-intense"
	ImpactDevastating        EmotionalImpact = "devastating"
	ImpactThoughtProvoking   EmotionalImpact = "thought-provoking"
)

// AgeGroup is the intended readership.
type AgeGroup string

// AgeGroup values.
const (
	AgeChildren    AgeGroup = "children"
	AgeMiddleGrade AgeGroup = "middle-grade"
	AgeYoungAdult  AgeGroup = "young-adult"
	AgeNewAdult    AgeGroup = "new-adult"
	AgeAdult       AgeGroup = "adult"
)

// CharacterDevelopment is the arc the main characters follow.
type CharacterDevelopment string

// CharacterDevelopment values.
const (
	DevSignificantTransformation CharacterDevelopment = "significant-transformation"
	DevGradualGrowth             CharacterDevelopment = "gradual-growth"
	DevStaticByDesign            CharacterDevelopment = "static-by-design"
	DevEnsembleVaried            CharacterDevelopment = "ensemble-varied"
)

// EndingType is how a story resolves.
type EndingType string

// EndingType values.
const (
	EndingHappilyEverAfter EndingType = "happily-ever-after"
	EndingHappyForNow      EndingType = "happy-for-now"
	EndingBittersweet      EndingType = "bittersweet"
	EndingAmbiguous        EndingType = "ambiguous"
	EndingTragic           EndingType = "tragic"
	EndingCliffhanger      EndingType = "cliffhanger"
	EndingOpenEnded        EndingType = "open-ended"
)

// ReadingDifficulty is how demanding a book is to read.
type ReadingDifficulty string

// ReadingDifficulty values.
const (
	DifficultyEasyBeachRead ReadingDifficulty = "easy-beach-read"
	DifficultyAccessible    ReadingDifficulty = "accessible"
	DifficultyModerate      ReadingDifficulty = "moderate"
	DifficultyChallenging   ReadingDifficulty = "challenging"
	DifficultyVeryDemanding ReadingDifficulty = "very-demanding"
)

// Intensity grades a content warning.
type Intensity string

// Intensity values.
const (
	IntensityMild     Intensity = "mild"
	IntensityModerate Intensity = "moderate"
	IntensityGraphic  Intensity = "graphic"
)

// RealOrFictional says whether a setting exists.
type RealOrFictional string

// RealOrFictional values.
const (
	SettingReal      RealOrFictional = "real"
	SettingFictional RealOrFictional = "fictional"
	SettingMixed     RealOrFictional = "mixed"
)

// SettingImportance is how much the setting matters to the story.
type SettingImportance string

// SettingImportance values.
const (
	ImportanceBackdrop         SettingImportance = "backdrop"
	ImportanceImportant        SettingImportance = "important"
	ImportanceCentralCharacter SettingImportance = "central-character"
)

var validPacing = map[Pacing]bool{
	PacingBreakneck: true, PacingFast: true, PacingModerate: true,
	PacingSlowBurn: true, PacingMeditative: true, PacingVariable: true,
}

// Valid reports whether p is one of the allowed pacing values.
func (p Pacing) Valid() bool { return validPacing[p] }

// NormalizePacing maps free-form model output onto an allowed value,
// returning the zero value when nothing matches.
func NormalizePacing(s string) Pacing {
	p := Pacing(s)
	if p.Valid() {
		return p
	}
	switch s {
	case "slow", "slow burn", "slowburn":
		return PacingSlowBurn
	case "medium", "moderate-paced":
		return PacingModerate
	case "fast-paced", "quick":
		return PacingFast
	}
	return ""
}
