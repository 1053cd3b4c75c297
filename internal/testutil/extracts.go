package testutil

// SampleExtracts is a small CRM/ERP extract set, keyed by path relative to
// the source directory. It exercises every cleansing rule: duplicate and
// NULL customer ids, padded names, unknown codes, product histories,
// malformed date integers, inconsistent sales amounts, legacy and future ERP
// values, country codes and a pass-through category table.
var SampleExtracts = map[string]string{
	"source_crm/cust_info.csv": `cst_id,cst_key,cst_firstname,cst_lastname,cst_marital_status,cst_gndr,cst_create_date
11000,AW00011000, Jon,Yang ,M,M,2025-10-06
11001,AW00011001,Eugene,Huang,S,F,2025-10-06
11002,AW00011002,Ruben,Torres,x, f ,2025-10-06
11003,AW00011003,Christy,Zhu,s,,
29466,AW00029466,Lance,Jimenez,M,,2026-01-25
29466,AW00029466,Lance,Jimenez ,M,M,2026-01-27
29466,AW00029466,Lance,Jimenez,S,M,
,SF566,,,,,
`,
	"source_crm/prd_info.csv": `prd_id,prd_key,prd_nm,prd_cost,prd_line,prd_start_dt,prd_end_dt
210,CO-RF-FR-R92B-58,HL Road Frame - Black- 58,,R ,2003-07-01,
211,CO-RF-FR-R92R-58,HL Road Frame - Red- 58,,R,2003-07-01,
212,AC-HE-HL-U509-R,Sport-100 Helmet- Red,12,S,2011-07-01,2007-12-28
213,AC-HE-HL-U509-R,Sport-100 Helmet- Red,14,S,2012-07-01,2008-12-27
214,AC-HE-HL-U509-R,Sport-100 Helmet- Red,13,S,2013-07-01,
215,BI-MB-BK-M82B-38,Mountain-100 Black- 38,1898,M,2011-07-01,
216,BI-TB-BK-T44U-60,Touring-2000 Blue- 60,755,T,2013-07-01,
217,XY,Unknown part,5,x,2013-07-01,
`,
	"source_crm/sales_details.csv": `sls_ord_num,sls_prd_key,sls_cust_id,sls_order_dt,sls_ship_dt,sls_due_dt,sls_sales,sls_quantity,sls_price
SO43697,FR-R92B-58,11000,20101229,20110105,20110110,3578,1,3578
SO43698,HL-U509-R,11001,20101229,20110105,20110110,,3,10
SO43699,HL-U509-R,11002,0,20110105,20110110,50,5,
SO43700,HL-U509-R,11003,20101229,20110105,20110110,0,0,
SO43701,BK-M82B-38,29466,5489,20110105,20110110,5,2,-30
SO43702,BK-T44U-60,11000,20110101,20110108,20110113,55,3,
SO43703,BK-T44U-60,11001,20110102,20110109,20110231,100,2,40
SO43704,FR-R92B-58,11002,20110103,20110110,20110115,-7,2,
`,
	"source_erp/CUST_AZ12.csv": `CID,BDATE,GEN
NASAW00011000,1971-10-06,Male
AW00011001,1976-05-10,F 
AW00011002,2099-01-01,
NASAW00029466,1950-02-02, m
`,
	"source_erp/LOC_A101.csv": `CID,CNTRY
AW-00011000,Australia
AW-00011001,DE
AW-00011002,US 
AW-00011003,USA
AW-00029466,
AW-00011004,  
`,
	"source_erp/PX_CAT_G1V2.csv": `ID,CAT,SUBCAT,MAINTENANCE
AC_HE,Accessories,Helmets,Yes
BI_MB,Bikes,Mountain Bikes,Yes
BI_TB,Bikes,Touring Bikes,Yes
CO_RF,Components,Road Frames,No
`,
}
