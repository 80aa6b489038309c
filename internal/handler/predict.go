package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/middleware"
	"github.com/slavkostrov/playlist-selection/internal/model"
	"github.com/slavkostrov/playlist-selection/internal/service"
	"github.com/slavkostrov/playlist-selection/pkg/response"
)

type PredictHandler struct {
	service   *service.PredictService
	validator *validator.Validate
}

func NewPredictHandler(svc *service.PredictService, v *validator.Validate) *PredictHandler {
	return &PredictHandler{
		service:   svc,
		validator: v,
	}
}

// Submit handles POST /api/predict/submit
// @Summary      Submit recommendation job
// @Description  Queue an asynchronous recommendation job for a track or song seed
// @Tags         Predict
// @Accept       json
// @Produce      json
// @Param        request body model.PredictSubmitRequest true "Recommendation seed"
// @Success      202 {object} model.PredictSubmitResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/predict/submit [post]
func (h *PredictHandler) Submit(c *fiber.Ctx) error {
	var req model.PredictSubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.Submit(c.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return response.ValidationError(c, err.Error(), nil)
		}
		return response.ServiceError(c, err.Error())
	}

	return response.Accepted(c, result)
}

// Status handles GET /api/predict/status/:jobId
// @Summary      Get recommendation job status
// @Description  Get the current state of a recommendation job
// @Tags         Predict
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.PredictStatusResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/predict/status/{jobId} [get]
func (h *PredictHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// Result handles GET /api/predict/result/:jobId
// @Summary      Get recommendation job result
// @Description  Get the recommended songs of a completed job
// @Tags         Predict
// @Produce      json
// @Param        jobId path string true "Job ID"
// @Success      200 {object} model.PredictResultResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      500 {object} response.ErrorResponse
// @Security     BearerAuth
// @Router       /api/predict/result/{jobId} [get]
func (h *PredictHandler) Result(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	result, err := h.service.GetResult(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return response.NotFound(c, err.Error())
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, result)
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
