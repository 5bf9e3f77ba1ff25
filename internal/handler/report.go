package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"healthscope/internal/logger"
	"healthscope/internal/middleware"
	"healthscope/internal/model"
	"healthscope/internal/service"

	"github.com/gin-gonic/gin"
)

const historyUnavailable = "Your report history is unavailable right now."

type ReportHandler struct {
	pipeline Analyzer
	reports  service.ReportStore
	sessions *service.SessionStore
	cookie   middleware.SessionCookie
	userID   string
	location string
	now      func() time.Time
}

func NewReportHandler(pipeline Analyzer, reports service.ReportStore, sessions *service.SessionStore,
	cookie middleware.SessionCookie, userID, location string) *ReportHandler {
	return &ReportHandler{
		pipeline: pipeline,
		reports:  reports,
		sessions: sessions,
		cookie:   cookie,
		userID:   userID,
		location: location,
		now:      time.Now,
	}
}

func (h *ReportHandler) today() string { return h.now().Format("2006-01-02") }

// GET /
func (h *ReportHandler) Index(c *gin.Context) {
	c.HTML(http.StatusOK, "welcome.html", gin.H{"Title": "Welcome", "Location": h.location})
}

// GET /upload_page
func (h *ReportHandler) UploadPage(c *gin.Context) {
	c.HTML(http.StatusOK, "upload.html", gin.H{"Title": "Upload", "Today": h.today()})
}

func (h *ReportHandler) uploadError(c *gin.Context, status int, msg string) {
	c.HTML(status, "upload.html", gin.H{"Title": "Upload", "Today": h.today(), "Error": msg})
}

// POST /analyze  multipart: file, report_date
func (h *ReportHandler) Analyze(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.uploadError(c, http.StatusRequestEntityTooLarge, "That file is too large.")
			return
		}
		c.Redirect(http.StatusSeeOther, "/upload_page")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.uploadError(c, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		h.uploadError(c, http.StatusBadRequest, "Could not read the uploaded file.")
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	date := c.PostForm("report_date")
	if date == "" {
		date = h.today()
	}

	analysis, err := h.pipeline.Analyze(c.Request.Context(), h.userID, data, mimeType, date)
	if err != nil {
		logger.Warn("analyze.rejected", "file", fh.Filename, "mime", mimeType, "err", err)
		h.uploadError(c, http.StatusBadRequest, "That file is not an image we can read. Upload a JPEG, PNG or GIF.")
		return
	}

	sess := currentSession(c, h.sessions)
	sess.Lock()
	sess.Activate(service.ActiveReport{
		ReportID:   analysis.ReportID,
		Date:       analysis.Date,
		Biomarkers: analysis.Biomarkers,
		Summary:    analysis.Summary,
		Notice:     analysis.Notice(),
	})
	sess.Unlock()

	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// GET /load_history
func (h *ReportHandler) History(c *gin.Context) {
	res := h.reports.History(c.Request.Context(), h.userID)
	data := gin.H{"Title": "History", "Reports": res.Value}
	if res.IsFailed() {
		data["Notice"] = historyUnavailable
	}
	c.HTML(http.StatusOK, "reports.html", data)
}

// GET /view_report/:id
func (h *ReportHandler) ViewReport(c *gin.Context) {
	res := h.reports.Get(c.Request.Context(), h.userID, c.Param("id"))
	if res.IsOK() {
		r := res.Value
		sess := currentSession(c, h.sessions)
		sess.Lock()
		sess.Activate(service.ActiveReport{ReportID: r.ID, Date: r.Date, Biomarkers: r.Biomarkers, Summary: r.Summary})
		sess.Unlock()
	} else {
		logger.Info("report.view missing", "id", c.Param("id"), "status", res.Status.String())
	}
	c.Redirect(http.StatusSeeOther, "/dashboard")
}

// GET /dashboard
func (h *ReportHandler) Dashboard(c *gin.Context) {
	active, turns := currentSession(c, h.sessions).Snapshot()
	if active == nil {
		c.Redirect(http.StatusSeeOther, "/upload_page")
		return
	}
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	c.HTML(http.StatusOK, "dashboard.html", gin.H{
		"Title":  "Dashboard",
		"Report": active,
		"Turns":  turns,
		"Notice": active.Notice,
	})
}

// GET /reset
func (h *ReportHandler) Reset(c *gin.Context) {
	h.sessions.Delete(c.GetString(middleware.SessionIDKey))
	h.cookie.Clear(c)
	c.Redirect(http.StatusSeeOther, "/")
}
