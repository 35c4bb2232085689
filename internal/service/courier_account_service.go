package service

import (
	"fmt"
	"strings"

	"github.com/dispatch-next/internal/constants"
	"github.com/dispatch-next/internal/models"
	"github.com/dispatch-next/internal/repository"

	"gorm.io/gorm"
)

// CourierAccountService 快递账户服务
type CourierAccountService struct {
	accountRepo repository.CourierAccountRepository
	userLogRepo repository.UserLogRepository
}

// NewCourierAccountService 创建快递账户服务
func NewCourierAccountService(accountRepo repository.CourierAccountRepository, userLogRepo repository.UserLogRepository) *CourierAccountService {
	return &CourierAccountService{
		accountRepo: accountRepo,
		userLogRepo: userLogRepo,
	}
}

// CourierAccountInput 创建/更新快递账户输入
type CourierAccountInput struct {
	TenantID     uint
	CourierID    uint
	Vendor       string
	Name         string
	Mode         models.IntegrationMode
	BaseURL      string
	APIKey       string
	ClientID     string
	OriginCity   string
	OriginState  string
	IsDefault    bool
	ActingUserID uint
}

func (input *CourierAccountInput) validate() error {
	input.Vendor = strings.ToLower(strings.TrimSpace(input.Vendor))
	input.Name = strings.TrimSpace(input.Name)
	if input.TenantID == 0 || input.CourierID == 0 || input.Name == "" || input.ActingUserID == 0 {
		return ErrCourierInvalid
	}
	if !input.Mode.Valid() {
		return ErrCourierInvalid
	}
	switch input.Vendor {
	case constants.CourierVendorFardar, constants.CourierVendorKoombiyo,
		constants.CourierVendorTransExpress, constants.CourierVendorRoyalExpress:
	default:
		return ErrCourierInvalid
	}
	// 外部对接必须有网关地址
	if input.Mode.CallsGateway() && strings.TrimSpace(input.BaseURL) == "" {
		return ErrCourierInvalid
	}
	return nil
}

// Create 创建快递账户，设默认时清除租户下原默认标记
func (s *CourierAccountService) Create(input CourierAccountInput) (*models.CourierAccount, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	account := &models.CourierAccount{
		TenantID:    input.TenantID,
		CourierID:   input.CourierID,
		Vendor:      input.Vendor,
		Name:        input.Name,
		Mode:        input.Mode,
		BaseURL:     strings.TrimSpace(input.BaseURL),
		APIKey:      strings.TrimSpace(input.APIKey),
		ClientID:    strings.TrimSpace(input.ClientID),
		OriginCity:  strings.TrimSpace(input.OriginCity),
		OriginState: strings.TrimSpace(input.OriginState),
		Status:      constants.CourierAccountStatusActive,
		IsDefault:   input.IsDefault,
	}

	err := models.DB.Transaction(func(tx *gorm.DB) error {
		accountRepo := s.accountRepo.WithTx(tx)
		if input.IsDefault {
			if err := accountRepo.ClearDefault(input.TenantID); err != nil {
				return err
			}
		}
		if err := accountRepo.Create(account); err != nil {
			return err
		}
		return s.userLogRepo.WithTx(tx).Create(&models.UserLog{
			UserID:   input.ActingUserID,
			TenantID: input.TenantID,
			Action:   constants.AuditActionCourierAccountChange,
			Details:  fmt.Sprintf("created co_id=%d vendor=%s mode=%s", account.ID, account.Vendor, account.Mode),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// Update 更新快递账户
func (s *CourierAccountService) Update(accountID uint, input CourierAccountInput) (*models.CourierAccount, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByIDForTenant(accountID, input.TenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrCourierInvalid
	}

	account.CourierID = input.CourierID
	account.Vendor = input.Vendor
	account.Name = input.Name
	account.Mode = input.Mode
	account.BaseURL = strings.TrimSpace(input.BaseURL)
	if key := strings.TrimSpace(input.APIKey); key != "" {
		account.APIKey = key
	}
	if clientID := strings.TrimSpace(input.ClientID); clientID != "" {
		account.ClientID = clientID
	}
	account.OriginCity = strings.TrimSpace(input.OriginCity)
	account.OriginState = strings.TrimSpace(input.OriginState)
	account.IsDefault = input.IsDefault

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		accountRepo := s.accountRepo.WithTx(tx)
		if input.IsDefault {
			if err := accountRepo.ClearDefault(input.TenantID); err != nil {
				return err
			}
		}
		if err := accountRepo.Update(account); err != nil {
			return err
		}
		return s.userLogRepo.WithTx(tx).Create(&models.UserLog{
			UserID:   input.ActingUserID,
			TenantID: input.TenantID,
			Action:   constants.AuditActionCourierAccountChange,
			Details:  fmt.Sprintf("updated co_id=%d vendor=%s mode=%s", account.ID, account.Vendor, account.Mode),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// SetStatus 启用/停用快递账户
func (s *CourierAccountService) SetStatus(accountID, tenantID uint, status string, actingUserID uint) (*models.CourierAccount, error) {
	if status != constants.CourierAccountStatusActive && status != constants.CourierAccountStatusInactive {
		return nil, ErrCourierInvalid
	}
	account, err := s.accountRepo.GetByIDForTenant(accountID, tenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrCourierInvalid
	}

	account.Status = status
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.accountRepo.WithTx(tx).Update(account); err != nil {
			return err
		}
		return s.userLogRepo.WithTx(tx).Create(&models.UserLog{
			UserID:   actingUserID,
			TenantID: tenantID,
			Action:   constants.AuditActionCourierAccountChange,
			Details:  fmt.Sprintf("status co_id=%d status=%s", account.ID, status),
		})
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// GetByID 查询租户下的快递账户
func (s *CourierAccountService) GetByID(accountID, tenantID uint) (*models.CourierAccount, error) {
	account, err := s.accountRepo.GetByIDForTenant(accountID, tenantID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrCourierInvalid
	}
	return account, nil
}

// List 查询快递账户列表
func (s *CourierAccountService) List(filter repository.CourierAccountListFilter) ([]models.CourierAccount, int64, error) {
	return s.accountRepo.List(filter)
}
