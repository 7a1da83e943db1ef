package models

// CategoryModel is a ledger category entries and items are classified under
type CategoryModel struct {
	BaseModel
	Name   string `gorm:"type:varchar(100);not null"`
	Kind   string `gorm:"type:varchar(20);not null"` // expense or revenue
	Active bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (CategoryModel) TableName() string {
	return "categories"
}

// SupplierModel is a supplier expenses can be attributed to
type SupplierModel struct {
	BaseModel
	Name     string `gorm:"type:varchar(200);not null"`
	Document string `gorm:"type:varchar(20);index"`
	Active   bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// ProductModel is a catalog product the matcher can suggest for an entry
type ProductModel struct {
	BaseModel
	Ref            string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name           string `gorm:"type:varchar(200);not null"`
	NormalizedName string `gorm:"type:varchar(200);not null;index"`
	Active         bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}
