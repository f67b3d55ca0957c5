package handlers

import (
	"net/http"
	"time"

	"github.com/Emmanard/eventwave/internal/helpers"
	"github.com/Emmanard/eventwave/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type EventRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category" binding:"required"`
	Date        time.Time       `json:"date" binding:"required"`
	Country     string          `json:"country" binding:"required"`
	City        string          `json:"city" binding:"required"`
	Venue       string          `json:"venue" binding:"required"`
	TicketPrice decimal.Decimal `json:"ticket_price" binding:"required"`
	Seats       int             `json:"seats" binding:"required,min=1"`
}

func CreateEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	event := models.Event{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Date:        req.Date,
		Country:     req.Country,
		City:        req.City,
		Venue:       req.Venue,
		TicketPrice: req.TicketPrice,
		Seats:       req.Seats,
		Status:      models.EventStatusDraft,
		OrganizerID: userID.(uuid.UUID),
	}

	if err := gormDB.Create(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"message":  "Event created successfully.",
		"event_id": event.ID,
	})
}

func GetEvent(c *gin.Context) {
	eventID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Preload("Organizer").Preload("SeatsBooked").Where("id = ?", eventID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Event not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving event.")
		return
	}

	if event.Organizer != nil {
		event.Organizer.Password = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"data":            event,
		"seats_remaining": event.SeatsRemaining(),
	})
}

func ListEvents(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	category := c.Query("category")
	city := c.Query("city")
	status := c.DefaultQuery("status", models.EventStatusPublished)

	pageNum, err := helpers.StringToInt(page)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	query := gormDB.Model(&models.Event{}).Where("status = ?", status)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if city != "" {
		query = query.Where("city = ?", city)
	}

	var totalCount int64
	query.Count(&totalCount)

	var events []models.Event
	offset := (pageNum - 1) * limitNum
	err = query.Preload("SeatsBooked").Offset(offset).Limit(limitNum).Order("date ASC").Find(&events).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving events.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"events":      events,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func UpdateEvent(c *gin.Context) {
	eventID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to update.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	// Capacity can never drop below what has already been committed.
	var bookedCount int64
	gormDB.Model(&models.Booking{}).Where("event_id = ?", event.ID).Count(&bookedCount)
	if int64(req.Seats) < bookedCount {
		helpers.RespondWithError(c, http.StatusConflict, "Seat capacity cannot be lower than seats already booked.")
		return
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Category = req.Category
	event.Date = req.Date
	event.Country = req.Country
	event.City = req.City
	event.Venue = req.Venue
	event.TicketPrice = req.TicketPrice
	event.Seats = req.Seats

	if err := gormDB.Save(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event updated successfully.",
		"event":   event,
	})
}

// setEventStatus is shared by the publish/close lifecycle endpoints.
func setEventStatus(c *gin.Context, from []string, to, successMessage string) {
	eventID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to modify it.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	allowed := false
	for _, status := range from {
		if event.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		helpers.RespondWithError(c, http.StatusConflict, "Event cannot transition from its current status.")
		return
	}

	if err := gormDB.Model(&event).Update("status", to).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update event status.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": successMessage})
}

func PublishEvent(c *gin.Context) {
	setEventStatus(c, []string{models.EventStatusDraft}, models.EventStatusPublished, "Event published successfully.")
}

func UnpublishEvent(c *gin.Context) {
	setEventStatus(c, []string{models.EventStatusPublished}, models.EventStatusDraft, "Event unpublished successfully.")
}

func CloseEvent(c *gin.Context) {
	setEventStatus(c, []string{models.EventStatusPublished}, models.EventStatusClosed, "Event closed successfully.")
}

func DeleteEvent(c *gin.Context) {
	eventID := c.Param("id")
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User ID not found in token.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var event models.Event
	if err := gormDB.Where("id = ? AND organizer_id = ?", eventID, userID).First(&event).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusForbidden, "Event not found or you don't have permission to delete.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding event.")
		return
	}

	if err := gormDB.Model(&event).Update("status", models.EventStatusDeleted).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete event.")
		return
	}
	if err := gormDB.Delete(&event).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Event deleted successfully.",
	})
}
