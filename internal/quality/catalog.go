package quality

// Catalog returns the fixed battery of checks in report order.
func Catalog() []Check {
	return []Check{
		// Customer (CRM)
		{
			ID: "bronze_cst_marital_invalid", Category: "invalid_code", Entity: "Customer",
			Description: "Marital status codes not in the code table",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_marital_status IS NULL OR UPPER(TRIM(cst_marital_status)) NOT IN ({{codes "marital_status"}})`,
			Columns: []string{"cst_id", "cst_key", "cst_marital_status"},
		},
		{
			ID: "bronze_cst_gender_invalid", Category: "invalid_code", Entity: "Customer",
			Description: "Gender codes not in the code table",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_gndr IS NULL OR UPPER(TRIM(cst_gndr)) NOT IN ({{codes "gender_crm"}})`,
			Columns: []string{"cst_id", "cst_key", "cst_gndr"},
		},
		{
			ID: "bronze_cst_untrimmed_names", Category: "untrimmed_text", Entity: "Customer",
			Description: "Names with leading or trailing spaces",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_firstname != TRIM(cst_firstname) OR cst_lastname != TRIM(cst_lastname)`,
			Columns: []string{"cst_id", "cst_firstname", "cst_lastname"},
		},
		{
			ID: "bronze_cst_id_duplicates", Category: "duplicate_key", Entity: "Customer",
			Description: "Customer ids appearing more than once",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Query:  `SELECT COUNT(*) FROM (SELECT cst_id FROM {{bronze "crm_cust_info"}} WHERE cst_id IS NOT NULL GROUP BY cst_id HAVING COUNT(*) > 1) d`,
			Detail: `SELECT cst_id, COUNT(*) AS copies FROM {{bronze "crm_cust_info"}} WHERE cst_id IS NOT NULL GROUP BY cst_id HAVING COUNT(*) > 1 ORDER BY cst_id`,
		},
		{
			ID: "silver_cst_marital_invalid", Category: "invalid_code", Entity: "Customer",
			Description: "Marital status outside the canonical labels",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_marital_status IS NULL OR cst_marital_status NOT IN ({{labels "marital_status"}})`,
			Columns: []string{"cst_id", "cst_marital_status"},
		},
		{
			ID: "silver_cst_gender_invalid", Category: "invalid_code", Entity: "Customer",
			Description: "Gender outside the canonical labels",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_gndr IS NULL OR cst_gndr NOT IN ({{labels "gender_crm"}})`,
			Columns: []string{"cst_id", "cst_gndr"},
		},
		{
			ID: "silver_cst_id_duplicates", Category: "duplicate_key", Entity: "Customer",
			Description: "Customer ids appearing more than once",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Query:  `SELECT COUNT(*) FROM (SELECT cst_id FROM {{silver "crm_cust_info"}} GROUP BY cst_id HAVING COUNT(*) > 1) d`,
			Detail: `SELECT cst_id, COUNT(*) AS copies FROM {{silver "crm_cust_info"}} GROUP BY cst_id HAVING COUNT(*) > 1 ORDER BY cst_id`,
		},
		{
			ID: "silver_cst_id_null", Category: "null_key", Entity: "Customer",
			Description: "Customers without an id",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_id IS NULL`,
			Columns: []string{"cst_key", "cst_firstname", "cst_lastname"},
		},
		{
			ID: "silver_cst_untrimmed_names", Category: "untrimmed_text", Entity: "Customer",
			Description: "Names with leading or trailing spaces",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_cust_info",
			Where:   `cst_firstname != TRIM(cst_firstname) OR cst_lastname != TRIM(cst_lastname)`,
			Columns: []string{"cst_id", "cst_firstname", "cst_lastname"},
		},

		// Product (CRM)
		{
			ID: "bronze_prd_cost_invalid", Category: "invalid_cost", Entity: "Product",
			Description: "Negative or missing product cost",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_cost IS NULL OR prd_cost < 0`,
			Columns: []string{"prd_id", "prd_key", "prd_cost"},
		},
		{
			ID: "bronze_prd_line_invalid", Category: "invalid_code", Entity: "Product",
			Description: "Product line codes not in the code table",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_line IS NULL OR UPPER(TRIM(prd_line)) NOT IN ({{codes "product_line"}})`,
			Columns: []string{"prd_id", "prd_key", "prd_line"},
		},
		{
			ID: "bronze_prd_key_short", Category: "short_key", Entity: "Product",
			Description: "Product keys too short to carry a category prefix and a product key",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_key IS NULL OR LENGTH(prd_key) < 7`,
			Columns: []string{"prd_id", "prd_key"},
		},
		{
			ID: "bronze_prd_end_before_start", Category: "date_inversion", Entity: "Product",
			Description: "Source end dates earlier than start dates",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_end_dt < prd_start_dt`,
			Columns: []string{"prd_id", "prd_key", "prd_start_dt", "prd_end_dt"},
		},
		{
			ID: "silver_prd_cost_invalid", Category: "invalid_cost", Entity: "Product",
			Description: "Negative or missing product cost",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_cost IS NULL OR prd_cost < 0`,
			Columns: []string{"prd_id", "prd_key", "prd_cost"},
		},
		{
			ID: "silver_prd_line_invalid", Category: "invalid_code", Entity: "Product",
			Description: "Product line outside the canonical labels",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_line IS NULL OR prd_line NOT IN ({{labels "product_line"}})`,
			Columns: []string{"prd_id", "prd_key", "prd_line"},
		},
		{
			ID: "silver_prd_end_before_start", Category: "date_inversion", Entity: "Product",
			Description: "Derived end dates earlier than start dates",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "crm_prd_info",
			Where:   `prd_end_dt < prd_start_dt`,
			Columns: []string{"prd_id", "prd_key", "prd_start_dt", "prd_end_dt"},
		},

		// Sales Detail (CRM)
		dateIntCheck("sls_order_dt", "Order"),
		dateIntCheck("sls_ship_dt", "Ship"),
		dateIntCheck("sls_due_dt", "Due"),
		{
			ID: "bronze_sls_amount_mismatch", Category: "amount_mismatch", Entity: "Sales Detail",
			Description: "Sales not equal to quantity times price, or a missing or non-positive value",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table: "crm_sales_details",
			Where: `sls_sales IS NULL OR sls_quantity IS NULL OR sls_price IS NULL ` +
				`OR sls_sales <= 0 OR sls_quantity <= 0 OR sls_price <= 0 ` +
				`OR sls_sales != sls_quantity * sls_price`,
			Columns: []string{"sls_ord_num", "sls_sales", "sls_quantity", "sls_price"},
		},
		{
			ID: "bronze_sls_zero_quantity", Category: "zero_quantity", Entity: "Sales Detail",
			Description: "Zero quantity with a missing or non-positive price; price cannot be derived",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_sales_details",
			Where:   `sls_quantity = 0 AND (sls_price IS NULL OR sls_price <= 0)`,
			Columns: []string{"sls_ord_num", "sls_sales", "sls_quantity", "sls_price"},
		},
		{
			ID: "silver_sls_date_out_of_range", Category: "invalid_date", Entity: "Sales Detail",
			Description: "Order, ship or due dates outside 1900-01-01..2050-01-01",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table: "crm_sales_details",
			Where: `sls_order_dt < '1900-01-01' OR sls_order_dt > '2050-01-01' ` +
				`OR sls_ship_dt < '1900-01-01' OR sls_ship_dt > '2050-01-01' ` +
				`OR sls_due_dt < '1900-01-01' OR sls_due_dt > '2050-01-01'`,
			Columns: []string{"sls_ord_num", "sls_order_dt", "sls_ship_dt", "sls_due_dt"},
		},
		{
			ID: "silver_sls_order_after_ship", Category: "date_inversion", Entity: "Sales Detail",
			Description: "Orders dated after their ship or due date",
			Layer:       Silver, Severity: SeverityWarning, Kind: KindCount,
			Table:   "crm_sales_details",
			Where:   `sls_order_dt > sls_ship_dt OR sls_order_dt > sls_due_dt`,
			Columns: []string{"sls_ord_num", "sls_order_dt", "sls_ship_dt", "sls_due_dt"},
		},
		{
			// Price is derived by integer division, so quantity*price may
			// fall short of sales by less than one quantity.
			ID: "silver_sls_amount_mismatch", Category: "amount_mismatch", Entity: "Sales Detail",
			Description: "Sales inconsistent with quantity times price",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table: "crm_sales_details",
			Where: `sls_sales IS NOT NULL AND sls_price IS NOT NULL AND sls_quantity > 0 ` +
				`AND NOT (sls_quantity * sls_price <= sls_sales AND sls_sales < sls_quantity * (sls_price + 1))`,
			Columns: []string{"sls_ord_num", "sls_sales", "sls_quantity", "sls_price"},
		},

		// Customer (ERP)
		{
			ID: "bronze_erp_cid_prefixed", Category: "prefixed_id", Entity: "ERP Customer",
			Description: "Customer ids carrying the legacy NAS prefix",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `cid LIKE 'NAS%'`,
			Columns: []string{"cid"},
		},
		{
			ID: "bronze_erp_bdate_out_of_range", Category: "invalid_date", Entity: "ERP Customer",
			Description: "Birth dates before 1924-01-01 or in the future",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `bdate < '1924-01-01' OR bdate > CURRENT_DATE`,
			Columns: []string{"cid", "bdate"},
		},
		{
			ID: "bronze_erp_gender_invalid", Category: "invalid_code", Entity: "ERP Customer",
			Description: "Gender codes not in the code table",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `gen IS NULL OR UPPER(TRIM(gen)) NOT IN ({{codes "gender_erp"}})`,
			Columns: []string{"cid", "gen"},
		},
		{
			ID: "silver_erp_cid_prefixed", Category: "prefixed_id", Entity: "ERP Customer",
			Description: "Customer ids still carrying the legacy NAS prefix",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `cid LIKE 'NAS%'`,
			Columns: []string{"cid"},
		},
		{
			ID: "silver_erp_cid_unmatched", Category: "unmatched_id", Entity: "ERP Customer",
			Description: "ERP customer ids with no CRM customer key",
			Layer:       Silver, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `NOT EXISTS (SELECT 1 FROM {{silver "crm_cust_info"}} c WHERE c.cst_key = cid)`,
			Columns: []string{"cid"},
		},
		{
			ID: "silver_erp_bdate_future", Category: "future_date", Entity: "ERP Customer",
			Description: "Birth dates in the future",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `bdate > CURRENT_DATE`,
			Columns: []string{"cid", "bdate"},
		},
		{
			ID: "silver_erp_gender_invalid", Category: "invalid_code", Entity: "ERP Customer",
			Description: "Gender outside the canonical labels",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_cust_az12",
			Where:   `gen IS NULL OR gen NOT IN ({{labels "gender_erp"}})`,
			Columns: []string{"cid", "gen"},
		},

		// Customer Location (ERP)
		{
			ID: "bronze_loc_cid_hyphenated", Category: "hyphenated_id", Entity: "ERP Customer Location",
			Description: "Location ids containing hyphens",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `cid LIKE '%-%'`,
			Columns: []string{"cid"},
		},
		{
			ID: "bronze_loc_country_unstandardized", Category: "unstandardized_country", Entity: "ERP Customer Location",
			Description: "Country codes or padded names awaiting standardization",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `UPPER(TRIM(cntry)) IN ({{sourceCodes "country"}}) OR cntry != TRIM(cntry)`,
			Columns: []string{"cid", "cntry"},
		},
		{
			ID: "bronze_loc_country_missing", Category: "missing_country", Entity: "ERP Customer Location",
			Description: "Missing or blank country",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `cntry IS NULL OR TRIM(cntry) = ''`,
			Columns: []string{"cid", "cntry"},
		},
		{
			ID: "silver_loc_cid_hyphenated", Category: "hyphenated_id", Entity: "ERP Customer Location",
			Description: "Location ids still containing hyphens",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `cid LIKE '%-%'`,
			Columns: []string{"cid"},
		},
		{
			ID: "silver_loc_country_unstandardized", Category: "unstandardized_country", Entity: "ERP Customer Location",
			Description: "Country codes or padded names left unstandardized",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `UPPER(cntry) IN ({{sourceCodes "country"}}) OR cntry != TRIM(cntry)`,
			Columns: []string{"cid", "cntry"},
		},
		{
			ID: "silver_loc_country_missing", Category: "missing_country", Entity: "ERP Customer Location",
			Description: "Missing or blank country",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `cntry IS NULL OR TRIM(cntry) = ''`,
			Columns: []string{"cid", "cntry"},
		},
		{
			ID: "silver_loc_cid_unmatched", Category: "unmatched_id", Entity: "ERP Customer Location",
			Description: "Location ids with no CRM customer key",
			Layer:       Silver, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_loc_a101",
			Where:   `NOT EXISTS (SELECT 1 FROM {{silver "crm_cust_info"}} c WHERE c.cst_key = cid)`,
			Columns: []string{"cid"},
		},

		// Product Category (ERP)
		{
			ID: "bronze_cat_missing_values", Category: "missing_value", Entity: "Product Category",
			Description: "Missing or blank category, subcategory or maintenance flag",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table: "erp_px_cat_g1v2",
			Where: `id IS NULL OR cat IS NULL OR subcat IS NULL OR maintenance IS NULL ` +
				`OR TRIM(cat) = '' OR TRIM(subcat) = '' OR TRIM(maintenance) = ''`,
			Columns: []string{"id", "cat", "subcat", "maintenance"},
		},
		{
			ID: "bronze_cat_untrimmed", Category: "untrimmed_text", Entity: "Product Category",
			Description: "Category values with leading or trailing spaces",
			Layer:       Bronze, Severity: SeverityWarning, Kind: KindCount,
			Table:   "erp_px_cat_g1v2",
			Where:   `cat != TRIM(cat) OR subcat != TRIM(subcat) OR maintenance != TRIM(maintenance)`,
			Columns: []string{"id", "cat", "subcat", "maintenance"},
		},
		{
			ID: "silver_cat_unreferenced", Category: "unmatched_id", Entity: "Product Category",
			Description: "Product category ids no product refers to",
			Layer:       Silver, Severity: SeverityWarning, Kind: KindCount,
			Query: `SELECT COUNT(*) FROM {{silver "erp_px_cat_g1v2"}} WHERE NOT EXISTS ` +
				`(SELECT 1 FROM {{silver "crm_prd_info"}} p WHERE p.cat_id = id)`,
			Detail: `SELECT id, cat, subcat FROM {{silver "erp_px_cat_g1v2"}} WHERE NOT EXISTS ` +
				`(SELECT 1 FROM {{silver "crm_prd_info"}} p WHERE p.cat_id = id) ORDER BY id`,
		},
		{
			ID: "silver_cat_equality", Category: "pass_through_equality", Entity: "Product Category",
			Description: "Rows differing between bronze and silver",
			Layer:       Silver, Severity: SeverityError, Kind: KindCount,
			Query: `SELECT ` +
				`(SELECT COUNT(*) FROM (SELECT id, cat, subcat, maintenance FROM {{bronze "erp_px_cat_g1v2"}} ` +
				`EXCEPT SELECT id, cat, subcat, maintenance FROM {{silver "erp_px_cat_g1v2"}}) a) + ` +
				`(SELECT COUNT(*) FROM (SELECT id, cat, subcat, maintenance FROM {{silver "erp_px_cat_g1v2"}} ` +
				`EXCEPT SELECT id, cat, subcat, maintenance FROM {{bronze "erp_px_cat_g1v2"}}) b)`,
			Detail: `SELECT id, cat, subcat, maintenance FROM {{bronze "erp_px_cat_g1v2"}} ` +
				`EXCEPT SELECT id, cat, subcat, maintenance FROM {{silver "erp_px_cat_g1v2"}}`,
		},
		{
			ID: "parity_cat_row_count", Category: "row_count_parity", Entity: "Product Category",
			Description: "Bronze and silver row counts of the pass-through table",
			Layer:       Silver, Severity: SeverityError, Kind: KindParity,
			Query: `SELECT (SELECT COUNT(*) FROM {{bronze "erp_px_cat_g1v2"}}), ` +
				`(SELECT COUNT(*) FROM {{silver "erp_px_cat_g1v2"}})`,
		},
	}
}

// dateIntCheck flags YYYYMMDD integers that cannot become a valid date.
func dateIntCheck(column, label string) Check {
	return Check{
		ID:          "bronze_" + column + "_invalid",
		Category:    "invalid_date",
		Entity:      "Sales Detail",
		Description: label + " dates that are not 8-digit values within 19000101..20500101",
		Layer:       Bronze,
		Severity:    SeverityWarning,
		Kind:        KindCount,
		Table:       "crm_sales_details",
		Where: column + ` <= 0 OR LENGTH(CAST(` + column + ` AS VARCHAR)) != 8 ` +
			`OR ` + column + ` > 20500101 OR ` + column + ` < 19000101`,
		Columns: []string{"sls_ord_num", column},
	}
}
