package models

// ColumnType is the logical type of a layer column. Each warehouse dialect
// maps it to a concrete SQL type.
type ColumnType int

const (
	Text ColumnType = iota
	Int
	Date
	Timestamp
)

// Column is one column of a layer table.
type Column struct {
	Name string
	Type ColumnType
}

// TableDef describes one entity in both the bronze and silver layers.
type TableDef struct {
	Name   string
	Entity string
	Source string // CSV extract relative to ingest.source_dir
	Bronze []Column
	Silver []Column
}

// Table names, in load order.
const (
	CRMCustInfo     = "crm_cust_info"
	CRMPrdInfo      = "crm_prd_info"
	CRMSalesDetails = "crm_sales_details"
	ERPCustAZ12     = "erp_cust_az12"
	ERPLocA101      = "erp_loc_a101"
	ERPPxCatG1V2    = "erp_px_cat_g1v2"
)

// Tables lists the six entities in the fixed load order.
var Tables = []TableDef{
	{
		Name:   CRMCustInfo,
		Entity: "Customer",
		Source: "source_crm/cust_info.csv",
		Bronze: []Column{
			{"cst_id", Int},
			{"cst_key", Text},
			{"cst_firstname", Text},
			{"cst_lastname", Text},
			{"cst_marital_status", Text},
			{"cst_gndr", Text},
			{"cst_create_date", Date},
		},
		Silver: []Column{
			{"cst_id", Int},
			{"cst_key", Text},
			{"cst_firstname", Text},
			{"cst_lastname", Text},
			{"cst_marital_status", Text},
			{"cst_gndr", Text},
			{"cst_create_date", Date},
		},
	},
	{
		Name:   CRMPrdInfo,
		Entity: "Product",
		Source: "source_crm/prd_info.csv",
		Bronze: []Column{
			{"prd_id", Int},
			{"prd_key", Text},
			{"prd_nm", Text},
			{"prd_cost", Int},
			{"prd_line", Text},
			{"prd_start_dt", Timestamp},
			{"prd_end_dt", Timestamp},
		},
		Silver: []Column{
			{"prd_id", Int},
			{"cat_id", Text},
			{"prd_key", Text},
			{"prd_nm", Text},
			{"prd_cost", Int},
			{"prd_line", Text},
			{"prd_start_dt", Date},
			{"prd_end_dt", Date},
		},
	},
	{
		Name:   CRMSalesDetails,
		Entity: "Sales Detail",
		Source: "source_crm/sales_details.csv",
		Bronze: []Column{
			{"sls_ord_num", Text},
			{"sls_prd_key", Text},
			{"sls_cust_id", Int},
			{"sls_order_dt", Int},
			{"sls_ship_dt", Int},
			{"sls_due_dt", Int},
			{"sls_sales", Int},
			{"sls_quantity", Int},
			{"sls_price", Int},
		},
		Silver: []Column{
			{"sls_ord_num", Text},
			{"sls_prd_key", Text},
			{"sls_cust_id", Int},
			{"sls_order_dt", Date},
			{"sls_ship_dt", Date},
			{"sls_due_dt", Date},
			{"sls_sales", Int},
			{"sls_quantity", Int},
			{"sls_price", Int},
		},
	},
	{
		Name:   ERPCustAZ12,
		Entity: "ERP Customer",
		Source: "source_erp/CUST_AZ12.csv",
		Bronze: []Column{
			{"cid", Text},
			{"bdate", Date},
			{"gen", Text},
		},
		Silver: []Column{
			{"cid", Text},
			{"bdate", Date},
			{"gen", Text},
		},
	},
	{
		Name:   ERPLocA101,
		Entity: "ERP Customer Location",
		Source: "source_erp/LOC_A101.csv",
		Bronze: []Column{
			{"cid", Text},
			{"cntry", Text},
		},
		Silver: []Column{
			{"cid", Text},
			{"cntry", Text},
		},
	},
	{
		Name:   ERPPxCatG1V2,
		Entity: "Product Category",
		Source: "source_erp/PX_CAT_G1V2.csv",
		Bronze: []Column{
			{"id", Text},
			{"cat", Text},
			{"subcat", Text},
			{"maintenance", Text},
		},
		Silver: []Column{
			{"id", Text},
			{"cat", Text},
			{"subcat", Text},
			{"maintenance", Text},
		},
	},
}

// LookupTable returns the definition of the named table.
func LookupTable(name string) (TableDef, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableDef{}, false
}

// ColumnNames returns the names of cols in order.
func ColumnNames(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
