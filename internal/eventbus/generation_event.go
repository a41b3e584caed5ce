package eventbus

import "time"

type GenerationEventType string

const (
	GenerationEventStarted   GenerationEventType = "GenerationStarted"
	GenerationEventProgress  GenerationEventType = "GenerationProgress"
	GenerationEventCompleted GenerationEventType = "GenerationCompleted"
	GenerationEventFailed    GenerationEventType = "GenerationFailed"
)

// GenerationEvent 流水线运行过程中的进度事件
type GenerationEvent struct {
	Type        GenerationEventType
	TaskID      string
	Step        string
	Progress    int
	Iteration   int
	ReviewScore *float64
	Error       string
	Duration    time.Duration
}

type GenerationEventHandler = Handler[GenerationEvent]
type GenerationEventBus = Bus[GenerationEventType, GenerationEvent]

func NewGenerationEventBus() *GenerationEventBus {
	return NewBus[GenerationEventType, GenerationEvent]()
}
