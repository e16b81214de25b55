package rules

// #region canonical
const canonicalVersion = 1

var (
	tone  = InputDef{Key: "tone", Label: "Tone", Type: InputChoice, Options: []string{"gentle", "neutral", "sharp"}}
	notes = InputDef{Key: "notes", Label: "Notes", Type: InputText}
)

// canonicalRules is the shipped ruleset. Assist is required exactly for the
// EXTERIOR states; the flag is stored per rule rather than derived.
func canonicalRules() []Rule {
	return []Rule{
		{
			State: "HIDE_TRUTH_INTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "secret", Label: "What are you keeping from yourself?", Type: InputText, Required: true},
				{Key: "admission", Label: "Admit one true thing", Type: InputText, Required: true},
				notes,
			},
			RequiredInputKeys: []string{"admission", "secret"},
		},
		{
			State: "HIDE_TRUTH_EXTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "secret", Label: "What are you keeping from others?", Type: InputText, Required: true},
				{Key: "confidant", Label: "Who could hear it?", Type: InputText, Required: true},
				tone,
			},
			RequiredInputKeys: []string{"confidant", "secret"},
			RequiresAssist:    true,
		},
		{
			State: "HIDE_DARE_INTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "avoidance", Label: "What are you avoiding?", Type: InputText, Required: true},
				{Key: "intensity", Label: "How heavy is it (1-10)?", Type: InputNumber},
				notes,
			},
			RequiredInputKeys: []string{"avoidance"},
		},
		{
			State: "HIDE_DARE_EXTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "avoidance", Label: "What are you avoiding out there?", Type: InputText, Required: true},
				{Key: "witness", Label: "Who will witness the dare?", Type: InputText, Required: true},
				{Key: "public", Label: "Make it public?", Type: InputBoolean},
			},
			RequiredInputKeys: []string{"avoidance", "witness"},
			RequiresAssist:    true,
		},
		{
			State: "SEEK_TRUTH_INTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "question", Label: "What do you want to understand?", Type: InputText, Required: true},
				{Key: "depth", Label: "Depth", Type: InputChoice, Options: []string{"surface", "middle", "deep"}, Required: true},
				notes,
			},
			RequiredInputKeys: []string{"depth", "question"},
		},
		{
			State: "SEEK_TRUTH_EXTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "question", Label: "What do you want to learn from someone?", Type: InputText, Required: true},
				{Key: "source", Label: "Who will you ask?", Type: InputText, Required: true},
				tone,
			},
			RequiredInputKeys: []string{"question", "source"},
			RequiresAssist:    true,
		},
		{
			State: "SEEK_DARE_INTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "challenge", Label: "Name the challenge", Type: InputText, Required: true},
				{Key: "days", Label: "Over how many days?", Type: InputNumber},
			},
			RequiredInputKeys: []string{"challenge"},
		},
		{
			State: "SEEK_DARE_EXTERIOR", Version: canonicalVersion,
			Inputs: []InputDef{
				{Key: "challenge", Label: "Name the challenge", Type: InputText, Required: true},
				{Key: "place", Label: "Where will it happen?", Type: InputText, Required: true},
				{Key: "partner", Label: "Who joins you?", Type: InputText},
				tone,
			},
			RequiredInputKeys: []string{"challenge", "place"},
			RequiresAssist:    true,
		},
	}
}

// #endregion canonical
