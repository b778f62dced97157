package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/repository"
)

// CatalogHandler exposes the public, read-only product surface. The
// data it returns is advisory for display; checkout re-reads price
// and stock authoritatively at validation time.
type CatalogHandler struct {
	Products *repository.ProductRepo
}

func NewCatalogHandler(products *repository.ProductRepo) *CatalogHandler {
	if products == nil {
		panic("nil repository passed to NewCatalogHandler")
	}
	return &CatalogHandler{Products: products}
}

type productResp struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	PricePaise int64  `json:"price_paise"`
	Unit       string `json:"unit,omitempty"`
	InStock    bool   `json:"in_stock"`
	StockQty   int64  `json:"stock_qty"`
}

func toProductResp(p model.Product) productResp {
	return productResp{
		ID: p.ID, Name: p.Name, PricePaise: p.PricePaise, Unit: p.Unit,
		InStock: p.StockQty > 0, StockQty: p.StockQty,
	}
}

// List returns all active products.
func (h *CatalogHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	products, err := h.Products.ListActive(ctx)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load products", err))
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResp(p))
	}
	return c.JSON(http.StatusOK, echo.Map{"products": out})
}

// Get returns one active product.
func (h *CatalogHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid product id"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	p, err := h.Products.GetActive(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "product not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load product", err))
	}
	return c.JSON(http.StatusOK, toProductResp(p))
}
