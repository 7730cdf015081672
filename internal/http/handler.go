package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-service/internal/model"
	"parking-service/internal/repository"
	"parking-service/internal/service"
)

type Handler struct {
	detectionService *service.DetectionService
	authService      *service.AuthService
	userService      *service.UserService
	log              zerolog.Logger
}

func NewHandler(
	detectionService *service.DetectionService,
	authService *service.AuthService,
	userService *service.UserService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		detectionService: detectionService,
		authService:      authService,
		userService:      userService,
		log:              log,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", h.login)
		auth.POST("/register", h.register)
	}

	detection := r.Group("/detection")
	{
		detection.POST("/entry", h.handleEntry)
		detection.POST("/exit", h.handleExit)
		detection.PUT("/:id/payment", h.updatePayment)
		detection.GET("/logs", h.listLogs)
		detection.PUT("/logs", h.updateLog)
		detection.DELETE("/logs", h.deleteLog)
		detection.GET("/events", h.listEvents)
		detection.PUT("/events", h.updateEvent)
		detection.DELETE("/events", h.deleteEvent)
		detection.GET("/event/:id", h.getEventWithLogs)
		detection.GET("/statistics", h.getStatistics)
	}

	user := r.Group("/user")
	{
		user.GET("", h.listUsers)
		user.PUT("", h.updateUser)
		user.DELETE("", h.deleteUser)
	}
}

// Auth handlers

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	token, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
		Role     string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if !model.ValidRole(req.Role) {
		c.JSON(http.StatusBadRequest, errorResponse("invalid role value, allowed values: staff, admin"))
		return
	}

	if err := h.authService.Register(c.Request.Context(), req.Username, req.Password, model.Role(req.Role)); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, successResponse(gin.H{"message": "registration successful"}))
}

// Detection handlers

func (h *Handler) handleEntry(c *gin.Context) {
	gateIn := strings.TrimSpace(c.PostForm("gate_in"))
	gateOut := strings.TrimSpace(c.PostForm("gate_out"))
	if (gateIn == "") == (gateOut == "") {
		c.JSON(http.StatusBadRequest, errorResponse("exactly one of gate_in and gate_out is required"))
		return
	}
	gate := gateIn
	if gate == "" {
		gate = gateOut
	}

	images, scores, err := readDetectionUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	results, err := h.detectionService.ProcessDetections(c.Request.Context(), service.DetectionInput{
		Images:           images,
		ConfidenceScores: scores,
		LicensePlate:     c.PostForm("license_plate"),
		Gate:             gate,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(results))
}

func (h *Handler) handleExit(c *gin.Context) {
	images, scores, err := readDetectionUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	fee, err := strconv.ParseFloat(strings.TrimSpace(c.PostForm("fee")), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid fee"))
		return
	}

	exitGate := strings.TrimSpace(c.PostForm("exit_gate"))
	if exitGate == "" {
		c.JSON(http.StatusBadRequest, errorResponse("exit_gate is required"))
		return
	}

	view, err := h.detectionService.Checkout(c.Request.Context(), service.CheckoutInput{
		Images:           images,
		ConfidenceScores: scores,
		LicensePlate:     c.PostForm("license_plate"),
		ExitGate:         exitGate,
		Fee:              fee,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(view))
}

// readDetectionUpload pulls image files and their confidence scores out of
// the multipart form. Accepts repeated "images"/"confidence_scores" fields
// or the singular "image"/"confidence_score" the console sends.
func readDetectionUpload(c *gin.Context) ([][]byte, []float64, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, errors.New("multipart form is required")
	}

	files := form.File["images"]
	if len(files) == 0 {
		files = form.File["image"]
	}
	if len(files) == 0 {
		return nil, nil, errors.New("at least one image is required")
	}

	rawScores := form.Value["confidence_scores"]
	if len(rawScores) == 0 {
		rawScores = form.Value["confidence_score"]
	}

	images := make([][]byte, 0, len(files))
	for _, file := range files {
		data, err := readUploadedFile(file)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, data)
	}

	scores := make([]float64, 0, len(rawScores))
	for _, raw := range rawScores {
		score, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, nil, errors.New("invalid confidence score")
		}
		scores = append(scores, score)
	}

	return images, scores, nil
}

func readUploadedFile(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, errors.New("failed to read uploaded image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("failed to read uploaded image")
	}
	return data, nil
}

func (h *Handler) updatePayment(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	var req struct {
		IsPaid *bool `json:"is_paid" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	view, err := h.detectionService.UpdatePayment(c.Request.Context(), id, *req.IsPaid)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(view))
}

var logSortFields = map[string]string{
	"id":               "_id",
	"create_date":      "createDate",
	"update_date":      "updateDate",
	"license_plate":    "licensePlate",
	"confidence_score": "confidenceScore",
	"parking_event_id": "parkingEventId",
	"is_entry":         "isEntry",
}

var eventSortFields = map[string]string{
	"id":            "_id",
	"create_date":   "createDate",
	"update_date":   "updateDate",
	"license_plate": "licensePlate",
	"entry_gate":    "entryGate",
	"exit_gate":     "exitGate",
	"is_check_in":   "isCheckIn",
	"fee":           "fee",
	"is_paid":       "isPaid",
}

var userSortFields = map[string]string{
	"id":            "_id",
	"create_date":   "createDate",
	"update_date":   "updateDate",
	"username":      "username",
	"password_hash": "passwordHash",
	"role":          "role",
}

// parseSort validates sort_by against the entity's allow-list and returns
// the store-side field name. Empty sort_by falls back to creation time.
func parseSort(c *gin.Context, allowed map[string]string) (field, direction string, ok bool) {
	sortBy := strings.TrimSpace(c.Query("sort_by"))
	if sortBy != "" {
		mapped, known := allowed[strings.ToLower(sortBy)]
		if !known {
			c.JSON(http.StatusBadRequest, errorResponse("invalid sort field"))
			return "", "", false
		}
		field = mapped
	}

	direction = strings.ToLower(strings.TrimSpace(c.Query("sort_dir")))
	if direction == "" {
		direction = "desc"
	}
	return field, direction, true
}

func parsePagination(c *gin.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.Query("page"))
	pageSize, _ = strconv.Atoi(c.Query("page_size"))
	return page, pageSize
}

func parseDateRangeParams(c *gin.Context) (start, end *time.Time, err error) {
	if raw := strings.TrimSpace(c.Query("start_date")); raw != "" {
		t, parseErr := parseTime(raw)
		if parseErr != nil {
			return nil, nil, errors.New("invalid start_date")
		}
		start = &t
	}
	if raw := strings.TrimSpace(c.Query("end_date")); raw != "" {
		t, parseErr := parseTime(raw)
		if parseErr != nil {
			return nil, nil, errors.New("invalid end_date")
		}
		end = &t
	}
	return start, end, nil
}

func (h *Handler) listLogs(c *gin.Context) {
	sortField, sortDir, ok := parseSort(c, logSortFields)
	if !ok {
		return
	}

	start, end, err := parseDateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	filter := repository.DetectionLogFilter{
		StartDate:     start,
		EndDate:       end,
		SortBy:        sortField,
		SortDirection: sortDir,
	}
	filter.Page, filter.PageSize = parsePagination(c)

	if plate := strings.TrimSpace(c.Query("license_plate")); plate != "" {
		filter.LicensePlate = &plate
	}
	if raw := strings.TrimSpace(c.Query("is_entry")); raw != "" {
		isEntry, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid is_entry"))
			return
		}
		filter.IsEntry = &isEntry
	}

	logs, err := h.detectionService.ListLogs(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(logs))
}

func (h *Handler) listEvents(c *gin.Context) {
	sortField, sortDir, ok := parseSort(c, eventSortFields)
	if !ok {
		return
	}

	start, end, err := parseDateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	filter := repository.ParkingEventFilter{
		StartDate:     start,
		EndDate:       end,
		SortBy:        sortField,
		SortDirection: sortDir,
	}
	filter.Page, filter.PageSize = parsePagination(c)

	if plate := strings.TrimSpace(c.Query("license_plate")); plate != "" {
		filter.LicensePlate = &plate
	}
	if raw := strings.TrimSpace(c.Query("is_check_in")); raw != "" {
		isCheckIn, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid is_check_in"))
			return
		}
		filter.IsCheckIn = &isCheckIn
	}
	if raw := strings.TrimSpace(c.Query("is_paid")); raw != "" {
		isPaid, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid is_paid"))
			return
		}
		filter.IsPaid = &isPaid
	}

	events, err := h.detectionService.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(events))
}

func (h *Handler) getEventWithLogs(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("event id is required"))
		return
	}

	view, err := h.detectionService.GetEventWithLogs(c.Request.Context(), id)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(view))
}

var statisticsGroupings = map[string]bool{
	service.GroupByDay:         true,
	service.GroupByMonth:       true,
	service.GroupByYear:        true,
	service.GroupByMonthOfYear: true,
}

func (h *Handler) getStatistics(c *gin.Context) {
	groupBy := strings.ToLower(strings.TrimSpace(c.Query("groupBy")))
	if groupBy == "" {
		groupBy = service.GroupByDay
	}
	if !statisticsGroupings[groupBy] {
		c.JSON(http.StatusBadRequest, errorResponse("invalid groupBy value, allowed values: day, month, year, monthofyear"))
		return
	}

	var start, end *time.Time

	if raw := strings.TrimSpace(c.Query("startDate")); raw != "" {
		t, err := parseStatisticsDate(raw, groupBy)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid startDate format for groupBy "+groupBy))
			return
		}
		start = &t
	} else if groupBy == service.GroupByMonthOfYear {
		c.JSON(http.StatusBadRequest, errorResponse("groupBy monthofyear requires startDate with the year (format: yyyy)"))
		return
	}

	if raw := strings.TrimSpace(c.Query("endDate")); raw != "" {
		endGroup := groupBy
		if groupBy == service.GroupByMonthOfYear {
			endGroup = service.GroupByYear
		}
		t, err := parseStatisticsDate(raw, endGroup)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid endDate format for groupBy "+groupBy))
			return
		}
		end = &t
	}

	stats, err := h.detectionService.Statistics(c.Request.Context(), start, end, groupBy)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(stats))
}

// parseStatisticsDate parses a date whose expected layout depends on the
// grouping: yyyy for year/monthofyear, yyyy-MM for month, yyyy-MM-dd with a
// free-form fallback otherwise.
func parseStatisticsDate(raw, groupBy string) (time.Time, error) {
	switch groupBy {
	case service.GroupByYear, service.GroupByMonthOfYear:
		return time.Parse("2006", raw)
	case service.GroupByMonth:
		return time.Parse("2006-01", raw)
	default:
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			return t, nil
		}
		return parseTime(raw)
	}
}

func (h *Handler) updateLog(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	var req struct {
		LicensePlate    *string  `json:"license_plate"`
		ConfidenceScore *float64 `json:"confidence_score"`
		ImageData       []byte   `json:"image_data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	err := h.detectionService.UpdateDetectionLog(c.Request.Context(), id, service.DetectionLogUpdateInput{
		LicensePlate:    req.LicensePlate,
		ConfidenceScore: req.ConfidenceScore,
		ImageData:       req.ImageData,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "log updated"}))
}

func (h *Handler) updateEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	var req struct {
		LicensePlate *string  `json:"license_plate"`
		EntryGate    *string  `json:"entry_gate"`
		ExitGate     *string  `json:"exit_gate"`
		IsCheckIn    *bool    `json:"is_check_in"`
		Fee          *float64 `json:"fee"`
		IsPaid       *bool    `json:"is_paid"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	err := h.detectionService.UpdateParkingEvent(c.Request.Context(), id, service.ParkingEventUpdateInput{
		LicensePlate: req.LicensePlate,
		EntryGate:    req.EntryGate,
		ExitGate:     req.ExitGate,
		IsCheckIn:    req.IsCheckIn,
		Fee:          req.Fee,
		IsPaid:       req.IsPaid,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "event updated"}))
}

func (h *Handler) deleteLog(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	if err := h.detectionService.DeleteDetectionLog(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "log deleted"}))
}

func (h *Handler) deleteEvent(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	if err := h.detectionService.DeleteParkingEvent(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "event deleted"}))
}

// User handlers

func (h *Handler) listUsers(c *gin.Context) {
	sortField, sortDir, ok := parseSort(c, userSortFields)
	if !ok {
		return
	}

	start, end, err := parseDateRangeParams(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	input := service.UserListInput{
		StartDate:     start,
		EndDate:       end,
		SortBy:        sortField,
		SortDirection: sortDir,
	}
	input.Page, input.PageSize = parsePagination(c)

	if username := strings.TrimSpace(c.Query("username")); username != "" {
		input.Username = &username
	}
	if password := c.Query("password"); password != "" {
		input.Password = &password
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		input.Role = &role
	}

	users, err := h.userService.List(c.Request.Context(), input)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(users))
}

func (h *Handler) updateUser(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	var req struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		return
	}

	if req.Role != nil && !model.ValidRole(*req.Role) {
		c.JSON(http.StatusBadRequest, errorResponse("invalid role value, allowed values: staff, admin"))
		return
	}

	err := h.userService.Update(c.Request.Context(), id, service.UserUpdateInput{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "user updated"}))
}

func (h *Handler) deleteUser(c *gin.Context) {
	id := strings.TrimSpace(c.Query("id"))
	if id == "" {
		c.JSON(http.StatusBadRequest, errorResponse("id is required"))
		return
	}

	if err := h.userService.Delete(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, successResponse(gin.H{"message": "user deleted"}))
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse(err.Error()))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}

func parseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	layouts := []string{
		time.RFC3339,
		"2006-01-02",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, errors.New("invalid time format")
}
