package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/internal/services"
	"github.com/fairwaylabs/caddie-backend/internal/spatial"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

// GolfHandler serves course and hole geometry queries
type GolfHandler struct {
	course *services.CourseService
	logger *logrus.Entry
}

func NewGolfHandler(course *services.CourseService, logger *logrus.Entry) *GolfHandler {
	return &GolfHandler{
		course: course,
		logger: logger,
	}
}

// ListCourses handles GET /courses
func (h *GolfHandler) ListCourses(c *gin.Context) {
	courses, err := h.course.ListCourses(c.Request.Context())
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{"courses": courses, "total": len(courses)})
}

// GetCourse handles GET /courses/:id
func (h *GolfHandler) GetCourse(c *gin.Context) {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid course id", err.Error())
		return
	}

	course, err := h.course.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, course)
}

// GetHole handles GET /courses/:id/holes/:number
func (h *GolfHandler) GetHole(c *gin.Context) {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid course id", err.Error())
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		utils.SendValidationError(c, "Invalid hole number", err.Error())
		return
	}

	hole, err := h.course.GetHoleByNumber(c.Request.Context(), courseID, number)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, hole)
}

// GetDistance handles GET /courses/:id/holes/:number/distance?lat=&lon=
func (h *GolfHandler) GetDistance(c *gin.Context) {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid course id", err.Error())
		return
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		utils.SendValidationError(c, "Invalid hole number", err.Error())
		return
	}
	ball, err := parsePosition(c)
	if err != nil {
		utils.SendValidationError(c, "Invalid position", err.Error())
		return
	}

	hole, err := h.course.GetHoleByNumber(c.Request.Context(), courseID, number)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	distance, err := h.course.DistanceToFlag(hole, ball)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	obstacles, err := h.course.ObstaclesToFlag(hole, ball)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, gin.H{
		"hole_number":     hole.HoleNumber,
		"distance_meters": distance,
		"distance_yards":  spatial.MetersToYards(distance),
		"terrain":         h.course.TerrainAt(hole, ball),
		"obstacles":       obstacles,
	})
}

// IdentifyHole handles GET /courses/:id/identify-hole?lat=&lon=
func (h *GolfHandler) IdentifyHole(c *gin.Context) {
	courseID, err := parseUintParam(c, "id")
	if err != nil {
		utils.SendValidationError(c, "Invalid course id", err.Error())
		return
	}
	ball, err := parsePosition(c)
	if err != nil {
		utils.SendValidationError(c, "Invalid position", err.Error())
		return
	}

	hole, err := h.course.IdentifyHoleByPosition(c.Request.Context(), courseID, ball)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}
	utils.SendSuccess(c, gin.H{
		"hole_number": hole.HoleNumber,
		"hole_id":     hole.ID,
		"par":         hole.Par,
	})
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func parsePosition(c *gin.Context) (spatial.Point, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return spatial.Point{}, err
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return spatial.Point{}, err
	}
	return spatial.Point{Lat: lat, Lon: lon}, nil
}
