package api

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/FriedOkra1/COGnitive/internal/ai"
	"github.com/FriedOkra1/COGnitive/internal/lecture"
	"github.com/FriedOkra1/COGnitive/internal/utils"
)

const (
	defaultFlashcardCount = 15
	defaultQuizCount      = 10
)

// PipelineRunner launches one lecture-processing run.
type PipelineRunner interface {
	Run(ctx context.Context, jobID, audioPath, fileName string) string
}

// ContentGenerator produces study content from a transcript.
type ContentGenerator interface {
	GenerateFlashcards(ctx context.Context, transcript string, count int) ([]lecture.Flashcard, error)
	GenerateQuiz(ctx context.Context, transcript string, count int) ([]lecture.QuizQuestion, error)
}

// ChatService answers free-form study questions.
type ChatService interface {
	ChatCompletion(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// Handler holds the HTTP layer's collaborators.
type Handler struct {
	store     *lecture.Store
	pipeline  PipelineRunner
	generator ContentGenerator
	chat      ChatService
	uploadDir string
	log       *logrus.Entry
}

// NewHandler wires the HTTP layer to the store, pipeline and AI services.
func NewHandler(store *lecture.Store, pipeline PipelineRunner, generator ContentGenerator, chat ChatService, uploadDir string) *Handler {
	return &Handler{
		store:     store,
		pipeline:  pipeline,
		generator: generator,
		chat:      chat,
		uploadDir: uploadDir,
		log:       logrus.WithField("component", "api"),
	}
}

// RegisterRoutes attaches all endpoints to the gin engine.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.healthCheck)

	lectures := r.Group("/api/lectures")
	{
		lectures.POST("/upload", h.uploadLecture)
		lectures.POST("/record", h.recordLecture)
		lectures.GET("/status/:jobId", h.getStatus)
		lectures.GET("/:jobId/transcript", h.getTranscript)
		lectures.GET("/:jobId/notes", h.getNotes)
		lectures.POST("/:jobId/flashcards", h.generateFlashcards)
		lectures.POST("/:jobId/quiz", h.generateQuiz)
		lectures.DELETE("/:jobId", h.deleteLecture)
	}

	r.POST("/api/chat", h.chatCompletion)
}

// healthCheck returns server health status
func (h *Handler) healthCheck(c *gin.Context) {
	utils.Success(c, gin.H{
		"status":  "ok",
		"service": "cognitive-backend",
	})
}

// uploadLecture handles POST /api/lectures/upload
func (h *Handler) uploadLecture(c *gin.Context) {
	file, err := c.FormFile("lecture")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "no file uploaded; please upload a lecture audio or video file")
		return
	}

	h.log.Infof("received lecture upload: %s (%.2fMB)", file.Filename, float64(file.Size)/1024/1024)
	h.startProcessing(c, file, file.Filename)
}

// recordLecture handles POST /api/lectures/record (browser recordings)
func (h *Handler) recordLecture(c *gin.Context) {
	file, err := c.FormFile("lecture")
	if err != nil {
		utils.Error(c, http.StatusBadRequest, "no recording provided")
		return
	}

	fileName := c.PostForm("fileName")
	if fileName == "" {
		fileName = "Recorded Lecture"
	}

	h.log.Infof("received lecture recording: %s (%.2fMB)", fileName, float64(file.Size)/1024/1024)
	h.startProcessing(c, file, fileName)
}

// startProcessing saves the upload, creates the job and launches the
// pipeline in the background. The job id is returned immediately; the
// caller observes progress by polling the status endpoint.
func (h *Handler) startProcessing(c *gin.Context, file *multipart.FileHeader, fileName string) {
	uploadPath, err := h.saveUpload(c, file)
	if err != nil {
		h.log.Errorf("failed to save upload: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to save uploaded file")
		return
	}

	job, err := h.store.Create(fileName, file.Size)
	if err != nil {
		os.Remove(uploadPath)
		h.log.Errorf("failed to create job: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to create processing job")
		return
	}

	go func() {
		h.pipeline.Run(context.Background(), job.JobID, uploadPath, fileName)
		if err := os.Remove(uploadPath); err != nil && !os.IsNotExist(err) {
			h.log.Warnf("failed to remove upload %s: %v", uploadPath, err)
		}
	}()

	utils.Success(c, gin.H{
		"jobId":   job.JobID,
		"status":  "processing",
		"message": "Lecture upload received. Processing has started.",
	})
}

func (h *Handler) saveUpload(c *gin.Context, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", err
	}
	dst := filepath.Join(h.uploadDir, uuid.NewString()+filepath.Ext(file.Filename))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// getStatus handles GET /api/lectures/status/:jobId
func (h *Handler) getStatus(c *gin.Context) {
	job, ok := h.store.Get(c.Param("jobId"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}

	data := gin.H{
		"jobId":     job.JobID,
		"status":    job.Status,
		"progress":  job.Progress,
		"stage":     job.Stage,
		"createdAt": job.CreatedAt,
		"updatedAt": job.UpdatedAt,
	}
	if job.Error != "" {
		data["error"] = job.Error
	}
	if job.CompletedAt != nil {
		data["completedAt"] = job.CompletedAt
	}
	if job.FileName != "" {
		data["fileName"] = job.FileName
	}
	if job.FileSize > 0 {
		data["fileSize"] = job.FileSize
	}
	if job.Duration > 0 {
		data["duration"] = job.Duration
	}

	utils.Success(c, data)
}

// getTranscript handles GET /api/lectures/:jobId/transcript
func (h *Handler) getTranscript(c *gin.Context) {
	job, ok := h.store.Get(c.Param("jobId"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != lecture.StatusCompleted {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("transcript not ready: job status is %s", job.Status))
		return
	}

	transcript, err := h.store.LoadTranscript(job.JobID)
	if err != nil {
		h.log.Errorf("failed to load transcript for %s: %v", job.JobID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	utils.Success(c, gin.H{
		"jobId":      job.JobID,
		"transcript": transcript,
	})
}

// getNotes handles GET /api/lectures/:jobId/notes
func (h *Handler) getNotes(c *gin.Context) {
	job, ok := h.store.Get(c.Param("jobId"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != lecture.StatusCompleted {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("notes not ready: job status is %s", job.Status))
		return
	}

	notes, err := h.store.LoadNotes(job.JobID)
	if err != nil {
		h.log.Errorf("failed to load notes for %s: %v", job.JobID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to load notes")
		return
	}

	utils.Success(c, gin.H{
		"jobId": job.JobID,
		"notes": notes,
	})
}

type generateRequest struct {
	Count int `json:"count"`
}

// generateFlashcards handles POST /api/lectures/:jobId/flashcards.
// Flashcards are generated once per job and served from the cached
// artifact afterwards.
func (h *Handler) generateFlashcards(c *gin.Context) {
	var req generateRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	if req.Count <= 0 {
		req.Count = defaultFlashcardCount
	}

	job, ok := h.store.Get(c.Param("jobId"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != lecture.StatusCompleted {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("lecture not ready: job status is %s", job.Status))
		return
	}

	var cards []lecture.Flashcard
	cached, err := h.store.LoadGeneratedContent(job.JobID, lecture.KindFlashcards, &cards)
	if err != nil {
		h.log.Errorf("failed to load cached flashcards for %s: %v", job.JobID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to load flashcards")
		return
	}

	if !cached {
		h.log.Infof("generating %d flashcards for job %s", req.Count, job.JobID)
		transcript, err := h.store.LoadTranscript(job.JobID)
		if err != nil {
			utils.Error(c, http.StatusInternalServerError, "failed to load transcript")
			return
		}
		cards, err = h.generator.GenerateFlashcards(c.Request.Context(), transcript, req.Count)
		if err != nil {
			h.log.Errorf("flashcard generation failed for %s: %v", job.JobID, err)
			utils.Error(c, http.StatusInternalServerError, "failed to generate flashcards: "+err.Error())
			return
		}
		if err := h.store.SaveGeneratedContent(job.JobID, lecture.KindFlashcards, cards); err != nil {
			h.log.Errorf("failed to cache flashcards for %s: %v", job.JobID, err)
			utils.Error(c, http.StatusInternalServerError, "failed to save flashcards")
			return
		}
	}

	utils.Success(c, gin.H{
		"jobId":      job.JobID,
		"flashcards": cards,
	})
}

// generateQuiz handles POST /api/lectures/:jobId/quiz with the same
// generate-once-per-job contract as flashcards.
func (h *Handler) generateQuiz(c *gin.Context) {
	var req generateRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	if req.Count <= 0 {
		req.Count = defaultQuizCount
	}

	job, ok := h.store.Get(c.Param("jobId"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}
	if job.Status != lecture.StatusCompleted {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("lecture not ready: job status is %s", job.Status))
		return
	}

	var questions []lecture.QuizQuestion
	cached, err := h.store.LoadGeneratedContent(job.JobID, lecture.KindQuiz, &questions)
	if err != nil {
		h.log.Errorf("failed to load cached quiz for %s: %v", job.JobID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to load quiz")
		return
	}

	if !cached {
		h.log.Infof("generating %d quiz questions for job %s", req.Count, job.JobID)
		transcript, err := h.store.LoadTranscript(job.JobID)
		if err != nil {
			utils.Error(c, http.StatusInternalServerError, "failed to load transcript")
			return
		}
		questions, err = h.generator.GenerateQuiz(c.Request.Context(), transcript, req.Count)
		if err != nil {
			h.log.Errorf("quiz generation failed for %s: %v", job.JobID, err)
			utils.Error(c, http.StatusInternalServerError, "failed to generate quiz: "+err.Error())
			return
		}
		if err := h.store.SaveGeneratedContent(job.JobID, lecture.KindQuiz, questions); err != nil {
			h.log.Errorf("failed to cache quiz for %s: %v", job.JobID, err)
			utils.Error(c, http.StatusInternalServerError, "failed to save quiz")
			return
		}
	}

	utils.Success(c, gin.H{
		"jobId":     job.JobID,
		"questions": questions,
	})
}

// deleteLecture handles DELETE /api/lectures/:jobId
func (h *Handler) deleteLecture(c *gin.Context) {
	jobID := c.Param("jobId")
	if _, ok := h.store.Get(jobID); !ok {
		utils.Error(c, http.StatusNotFound, "job not found")
		return
	}

	if err := h.store.Delete(jobID); err != nil {
		h.log.Errorf("failed to delete job %s: %v", jobID, err)
		utils.Error(c, http.StatusInternalServerError, "failed to delete lecture")
		return
	}

	utils.Success(c, gin.H{
		"jobId":   jobID,
		"deleted": true,
	})
}

type chatRequest struct {
	Messages []ai.ChatMessage `json:"messages"`
}

// chatCompletion handles POST /api/chat
func (h *Handler) chatCompletion(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Messages) == 0 {
		utils.Error(c, http.StatusBadRequest, "messages is required")
		return
	}

	reply, err := h.chat.ChatCompletion(c.Request.Context(), req.Messages)
	if err != nil {
		h.log.Errorf("chat completion failed: %v", err)
		utils.Error(c, http.StatusInternalServerError, "failed to generate response")
		return
	}

	utils.Success(c, gin.H{
		"reply": reply,
	})
}
