package model

// StageID identifies a stage of the alignment pipeline.
type StageID string

// The seven stages, in execution order.
const (
	StageDataPrep     StageID = "data_prep"
	StageBaselineEval StageID = "baseline_eval"
	StageQLoRATrain   StageID = "qlora_train"
	StageQLoRAEval    StageID = "qlora_eval"
	StageDPOTrain     StageID = "dpo_train"
	StageDPOEval      StageID = "dpo_eval"
	StageComparison   StageID = "comparison"
)

// StageOrder lists every stage in the fixed order the pipeline runs them.
var StageOrder = []StageID{
	StageDataPrep,
	StageBaselineEval,
	StageQLoRATrain,
	StageQLoRAEval,
	StageDPOTrain,
	StageDPOEval,
	StageComparison,
}

// stageDescriptions holds the banner text printed before each stage.
var stageDescriptions = map[StageID]string{
	StageDataPrep:     "STEP 1: Preparing Evaluation Dataset",
	StageBaselineEval: "STEP 2: Baseline Model Evaluation",
	StageQLoRATrain:   "STEP 3: QLoRA Training",
	StageQLoRAEval:    "STEP 4: QLoRA Model Evaluation",
	StageDPOTrain:     "STEP 5: DPO Training",
	StageDPOEval:      "STEP 6: DPO Model Evaluation",
	StageComparison:   "STEP 7: Comparing Results",
}

// Description returns the human-readable banner text for the stage.
func (id StageID) Description() string {
	if d, ok := stageDescriptions[id]; ok {
		return d
	}
	return string(id)
}

// Optional reports whether the stage only runs when DPO is included.
func (id StageID) Optional() bool {
	return id == StageDPOTrain || id == StageDPOEval
}

// Stage pairs a command with its human-readable description.
type Stage struct {
	// ID identifies the stage.
	ID StageID

	// Description is printed in the banner before the command runs.
	Description string

	// Command is the process to execute.
	Command Command
}

// NewStage creates a Stage whose description is the default for id.
func NewStage(id StageID, cmd Command) Stage {
	return Stage{
		ID:          id,
		Description: id.Description(),
		Command:     cmd,
	}
}
