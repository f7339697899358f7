package rest

import (
	"bytes"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"yqhp/bitable-doc/internal/document"
	"yqhp/bitable-doc/internal/expression"
	"yqhp/bitable-doc/internal/generator"
	"yqhp/bitable-doc/internal/loader"
	"yqhp/bitable-doc/internal/registry"
	"yqhp/bitable-doc/internal/render"
	"yqhp/bitable-doc/internal/resolver"
	"yqhp/bitable-doc/internal/schema"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// healthCheck handles GET /health
func (s *Server) healthCheck(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// translate handles POST /api/v1/translate. ?format=markdown returns the
// 自动化地图 document instead of JSON.
func (s *Server) translate(c *fiber.Ctx) error {
	b, err := s.bundle(c)
	if err != nil {
		return badRequest(c, err)
	}
	if c.Query("format") == "markdown" {
		c.Set(fiber.HeaderContentType, "text/markdown; charset=utf-8")
		return c.SendString(b.Documents.Automation)
	}
	return c.JSON(TranslateResponse{
		RunID:     runID(c),
		Stats:     b.Registry.Stats(),
		Workflows: b.Workflows,
	})
}

// schema handles POST /api/v1/schema
func (s *Server) schema(c *fiber.Ctx) error {
	reg, err := s.registry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	sb := schema.NewBuilder(reg)
	return c.JSON(SchemaResponse{
		RunID:     runID(c),
		Catalog:   sb.Catalog(),
		Relations: sb.Relationships(),
	})
}

// schemaWorkbook handles POST /api/v1/schema/xlsx
func (s *Server) schemaWorkbook(c *fiber.Ctx) error {
	reg, err := s.registry(c.Body())
	if err != nil {
		return badRequest(c, err)
	}
	var buf bytes.Buffer
	if err := render.WriteFieldWorkbook(&buf, schema.NewBuilder(reg).Catalog()); err != nil {
		s.logger.Error("生成字段工作簿失败", zap.String("run_id", runID(c)), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	c.Set(fiber.HeaderContentType, contentTypeXLSX)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="fields.xlsx"`)
	return c.Send(buf.Bytes())
}

// audit handles POST /api/v1/audit
func (s *Server) audit(c *fiber.Ctx) error {
	b, err := s.bundle(c)
	if err != nil {
		return badRequest(c, err)
	}
	return c.JSON(AuditResponse{
		RunID:   runID(c),
		Summary: b.Summary(),
		Report:  b.Report,
	})
}

// expression handles POST /api/v1/expression
func (s *Server) expression(c *fiber.Ctx) error {
	var req ExpressionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "请求体解析失败: " + err.Error(),
		})
	}
	if req.Formula == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid_request",
			Message: "formula 不能为空",
		})
	}

	reg := registry.Build(nil)
	if len(req.Base) > 0 {
		var err error
		if reg, err = s.registry(req.Base); err != nil {
			return badRequest(c, err)
		}
	}

	res := expression.New(resolver.New(reg)).Translate(req.Formula, req.TableID)
	return c.JSON(ExpressionResponse{
		RunID:   runID(c),
		Text:    res.Text,
		Filter:  res.Filter,
		Clauses: res.Clauses,
	})
}

func (s *Server) bundle(c *fiber.Ctx) (*generator.Bundle, error) {
	return s.generator.DecodeBytes(c.UserContext(), c.Body())
}

func (s *Server) registry(data []byte) (*registry.Registry, error) {
	export, err := s.generator.Decode(data)
	if err != nil {
		return nil, err
	}
	return registry.Build(export.Snapshot), nil
}

// badRequest maps undecodable input to 400; anything else goes to the error handler.
func badRequest(c *fiber.Ctx, err error) error {
	var (
		decodeErr  *loader.DecodeError
		missingErr *loader.SectionMissingError
		syntaxErr  *document.SyntaxError
	)
	switch {
	case errors.As(err, &missingErr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "missing_section", Message: err.Error()})
	case errors.As(err, &decodeErr), errors.As(err, &syntaxErr):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid_base", Message: err.Error()})
	}
	return err
}
