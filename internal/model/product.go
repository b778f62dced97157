package model

import "time"

// Product is the authoritative pricing and stock source for the
// order pipeline. Prices are stored in integer paise to avoid
// floating point drift; ₹150 is 15000.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name.
//  PricePaise – current unit price in paise.
//  StockQty   – units currently in stock.
//  Unit       – sell unit description (e.g. "500 g", "1 pc").
//  IsActive   – inactive products are invisible to checkout.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type Product struct {
    ID         uint64    // products.id
    Name       string    // products.name
    PricePaise int64     // products.price_paise
    StockQty   int64     // products.stock_qty
    Unit       string    // products.unit
    IsActive   bool      // products.is_active
    CreatedAt  time.Time // products.created_at
    UpdatedAt  time.Time // products.updated_at
}
