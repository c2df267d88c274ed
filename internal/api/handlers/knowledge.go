package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/wd-ai-tools/ai-gateway/internal/api/response"
	"github.com/wd-ai-tools/ai-gateway/internal/knowledge"
)

// KnowledgeHandler serves outline and question generation.
type KnowledgeHandler struct {
	outlines  *knowledge.OutlineGenerator
	questions *knowledge.QuestionGenerator
}

func NewKnowledgeHandler(outlines *knowledge.OutlineGenerator, questions *knowledge.QuestionGenerator) *KnowledgeHandler {
	return &KnowledgeHandler{outlines: outlines, questions: questions}
}

// GenerateOutline handles POST /outline/generate.
func (h *KnowledgeHandler) GenerateOutline(c *gin.Context) {
	var in knowledge.OutlineInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	if streamQuery(c) {
		in.Stream = boolPtr(true)
	}

	req, err := knowledge.ParseOutline(in)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.outlines.Generate(c.Request.Context(), req)
	writeResult[knowledge.Outline](c, result, err)
}

// GenerateQuestions handles POST /questions/generate.
func (h *KnowledgeHandler) GenerateQuestions(c *gin.Context) {
	var in knowledge.QuestionInput
	if err := bindJSON(c, &in); err != nil {
		response.Error(c, err)
		return
	}
	if streamQuery(c) {
		in.Stream = boolPtr(true)
	}

	req, err := knowledge.ParseQuestions(in)
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.questions.Generate(c.Request.Context(), req)
	writeResult[knowledge.QuestionCollection](c, result, err)
}

func boolPtr(b bool) *bool { return &b }
