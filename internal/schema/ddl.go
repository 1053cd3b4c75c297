// Package schema bootstraps the layer schemas, tables and gold views.
package schema

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"salesdw/internal/warehouse"
	"salesdw/pkg/errors"
	"salesdw/pkg/models"
)

// View is one gold star-schema view.
type View struct {
	Name   string
	Select string // Body of the view, with {silver} replaced per table
}

// Gold view names.
const (
	DimCustomers = "dim_customers"
	DimProducts  = "dim_products"
	FactSales    = "fact_sales"
)

// Views lists the gold views in creation order; fact_sales reads both
// dimensions.
var Views = []View{
	{
		Name: DimCustomers,
		Select: `SELECT
	ROW_NUMBER() OVER (ORDER BY ci.cst_id) AS customer_key,
	ci.cst_id AS customer_id,
	ci.cst_key AS customer_number,
	ci.cst_firstname AS first_name,
	ci.cst_lastname AS last_name,
	la.cntry AS country,
	ci.cst_marital_status AS marital_status,
	CASE WHEN ci.cst_gndr != 'N/A' THEN ci.cst_gndr ELSE COALESCE(ca.gen, 'N/A') END AS gender,
	ca.bdate AS birthdate,
	ci.cst_create_date AS create_date
FROM {{silver "crm_cust_info"}} ci
LEFT JOIN {{silver "erp_cust_az12"}} ca ON ci.cst_key = ca.cid
LEFT JOIN {{silver "erp_loc_a101"}} la ON ci.cst_key = la.cid`,
	},
	{
		Name: DimProducts,
		Select: `SELECT
	ROW_NUMBER() OVER (ORDER BY pn.prd_start_dt, pn.prd_key) AS product_key,
	pn.prd_id AS product_id,
	pn.prd_key AS product_number,
	pn.prd_nm AS product_name,
	pn.cat_id AS category_id,
	pc.cat AS category,
	pc.subcat AS subcategory,
	pc.maintenance AS maintenance,
	pn.prd_cost AS cost,
	pn.prd_line AS product_line,
	pn.prd_start_dt AS start_date
FROM {{silver "crm_prd_info"}} pn
LEFT JOIN {{silver "erp_px_cat_g1v2"}} pc ON pn.cat_id = pc.id
WHERE pn.prd_end_dt IS NULL`,
	},
	{
		Name: FactSales,
		Select: `SELECT
	sd.sls_ord_num AS order_number,
	pr.product_key AS product_key,
	cu.customer_key AS customer_key,
	sd.sls_order_dt AS order_date,
	sd.sls_ship_dt AS shipping_date,
	sd.sls_due_dt AS due_date,
	sd.sls_sales AS sales_amount,
	sd.sls_quantity AS quantity,
	sd.sls_price AS price
FROM {{silver "crm_sales_details"}} sd
LEFT JOIN {{gold "dim_products"}} pr ON sd.sls_prd_key = pr.product_number
LEFT JOIN {{gold "dim_customers"}} cu ON sd.sls_cust_id = cu.customer_id`,
	},
}

// CreateTable renders CREATE TABLE IF NOT EXISTS for one layer table.
func CreateTable(d warehouse.Dialect, qualified string, columns []models.Column) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf("\t%s %s", c.Name, columnType(d, c.Type))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", qualified, strings.Join(defs, ",\n"))
}

func columnType(d warehouse.Dialect, t models.ColumnType) string {
	switch t {
	case models.Int:
		return d.Int()
	case models.Date:
		return d.Date()
	case models.Timestamp:
		return d.Timestamp()
	default:
		return d.Text()
	}
}

// TableStatements returns the schema and table DDL for bronze and silver.
func TableStatements(d warehouse.Dialect, layers models.Layers) []string {
	var stmts []string
	for _, schema := range []string{layers.Bronze, layers.Silver} {
		if stmt := d.CreateSchema(schema); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	for _, t := range models.Tables {
		stmts = append(stmts, CreateTable(d, d.Table(layers.Bronze, t.Name), t.Bronze))
	}
	for _, t := range models.Tables {
		stmts = append(stmts, CreateTable(d, d.Table(layers.Silver, t.Name), t.Silver))
	}
	return stmts
}

// ViewStatements returns the statements replacing the gold views.
func ViewStatements(d warehouse.Dialect, layers models.Layers) ([]string, error) {
	var stmts []string
	if stmt := d.CreateSchema(layers.Gold); stmt != "" {
		stmts = append(stmts, stmt)
	}
	// Dependents go first.
	for i := len(Views) - 1; i >= 0; i-- {
		stmts = append(stmts, d.DropView(d.Table(layers.Gold, Views[i].Name)))
	}
	for _, v := range Views {
		body, err := qualify(d, layers, v.Name, v.Select)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "Failed to render gold view").WithContext("view", v.Name)
		}
		stmts = append(stmts, fmt.Sprintf("CREATE VIEW %s AS\n%s", d.Table(layers.Gold, v.Name), body))
	}
	return stmts, nil
}

// qualify renders a view body with the silver and gold layer names.
func qualify(d warehouse.Dialect, layers models.Layers, name, body string) (string, error) {
	tmpl, err := template.New(name).Funcs(template.FuncMap{
		"silver": func(table string) string { return d.Table(layers.Silver, table) },
		"gold":   func(table string) string { return d.Table(layers.Gold, table) },
	}).Parse(body)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Script joins the statements into one semicolon separated script.
func Script(stmts []string) string {
	return strings.Join(stmts, ";\n\n") + ";\n"
}
