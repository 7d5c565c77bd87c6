package qa

// ChatRequest carries one user question for a single turn.
type ChatRequest struct {
	UserQuestion string `json:"user_question"`
}

// ChatResponse is the terminal result returned to the caller. RelatedKnowledge
// is empty on every fallback path and holds exactly one item on the knowledge
// path.
type ChatResponse struct {
	Answer           string                 `json:"answer"`
	RelatedKnowledge []RelatedKnowledgeItem `json:"related_knowledge"`
}

// CourseMatch is the best-matching course returned by the recommendation
// service for a query.
type CourseMatch struct {
	CourseUUID   string `json:"course_uuid"`
	ResourceName string `json:"resource_name"`
	FileName     string `json:"file_name"`
	VideoLink    string `json:"video_link"`
	VideoSummary string `json:"video_summary"`
}

// ReportMatch is the best-matching report segment within a matched course.
type ReportMatch struct {
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Duration  string   `json:"duration"`
	KeyPoints []string `json:"key_points"`
}

// RelatedKnowledgeItem is one citation: the union of course metadata and
// report time fields. It exists only when both a course and a report matched.
type RelatedKnowledgeItem struct {
	ResourceName string `json:"resource_name"`
	FileName     string `json:"file_name"`
	VideoLink    string `json:"video_link"`
	VideoSummary string `json:"video_summary"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Duration     string `json:"duration"`
}

// PromptPaths names the on-disk templates for one topic. Either path may
// point at a missing file, in which case the built-in default is used.
type PromptPaths struct {
	Knowledge string
	Fallback  string
}

// EventType tags one frame of a streaming response.
type EventType string

const (
	EventAnswerChunk EventType = "answer_chunk"
	EventComplete    EventType = "complete"
	EventError       EventType = "error"
)

// Event is one SSE frame payload: zero or more answer_chunk events followed
// by exactly one complete or error event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}
