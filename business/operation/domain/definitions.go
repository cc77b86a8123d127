package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	protocolDomain "github.com/fd1az/dma-strategies/business/protocol/domain"
	"github.com/fd1az/dma-strategies/internal/apperror"
)

// Kind is the shape of an operation.
type Kind uint8

const (
	KindOpen Kind = iota
	KindAdjustRiskUp
	KindAdjustRiskDown
	KindClose
	KindDepositBorrow
	KindPaybackWithdraw
)

var kindNames = map[Kind]string{
	KindOpen:            "Open",
	KindAdjustRiskUp:    "AdjustRiskUp",
	KindAdjustRiskDown:  "AdjustRiskDown",
	KindClose:           "Close",
	KindDepositBorrow:   "DepositBorrow",
	KindPaybackWithdraw: "PaybackWithdraw",
}

var kinds = []Kind{KindOpen, KindAdjustRiskUp, KindAdjustRiskDown, KindClose, KindDepositBorrow, KindPaybackWithdraw}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// OperationName is the name the executor's operations registry knows the layout by,
// for example OpenAAVEV3Position.
func OperationName(p protocolDomain.Protocol, k Kind) string {
	return k.String() + p.OperationTag() + "Position"
}

// ProtocolActions are the lending actions of one protocol. SetEMode is nil when the
// protocol has no efficiency mode.
type ProtocolActions struct {
	Deposit  Action
	Borrow   Action
	Withdraw Action
	Payback  Action
	SetEMode *Action
	// Collateralised protocols deposit the flashloan as temporary collateral.
	Collateralised bool
}

// ActionsFor returns the lending actions of p.
func ActionsFor(p protocolDomain.Protocol) (ProtocolActions, error) {
	switch p {
	case protocolDomain.AaveV2:
		return ProtocolActions{
			Deposit:        AaveV2DepositAction,
			Borrow:         AaveV2BorrowAction,
			Withdraw:       AaveV2WithdrawAction,
			Payback:        AaveV2PaybackAction,
			Collateralised: true,
		}, nil
	case protocolDomain.AaveV3:
		return ProtocolActions{
			Deposit:  AaveV3DepositAction,
			Borrow:   AaveV3BorrowAction,
			Withdraw: AaveV3WithdrawAction,
			Payback:  AaveV3PaybackAction,
			SetEMode: &AaveV3SetEModeAction,
		}, nil
	case protocolDomain.Spark:
		return ProtocolActions{
			Deposit:  SparkDepositAction,
			Borrow:   SparkBorrowAction,
			Withdraw: SparkWithdrawAction,
			Payback:  SparkPaybackAction,
			SetEMode: &SparkSetEModeAction,
		}, nil
	case protocolDomain.MorphoBlue:
		return ProtocolActions{
			Deposit:  MorphoBlueDepositAction,
			Borrow:   MorphoBlueBorrowAction,
			Withdraw: MorphoBlueWithdrawAction,
			Payback:  MorphoBluePaybackAction,
		}, nil
	}
	return ProtocolActions{}, apperror.Validation(apperror.CodeUnsupportedProtocolVersion,
		fmt.Sprintf("No operation found for Aave protocol version %s", p))
}

// Layout lists the service names of an operation in execution order, flashloan callbacks
// inlined after the flashloan.
func Layout(p protocolDomain.Protocol, k Kind) ([]string, error) {
	a, err := ActionsFor(p)
	if err != nil {
		return nil, err
	}

	switch k {
	case KindOpen, KindAdjustRiskUp:
		var s []string
		if a.Collateralised {
			s = []string{
				ServiceTakeFlashloan, ServicePullToken, ServicePullToken, ServiceWrapEth,
				ServiceSetApproval, a.Deposit.Service, a.Borrow.Service,
				ServiceSwap, ServiceSetApproval, a.Deposit.Service, a.Withdraw.Service,
			}
		} else {
			s = []string{
				ServiceTakeFlashloan, ServicePullToken, ServicePullToken, ServiceWrapEth,
				ServiceSwap, ServiceSetApproval, a.Deposit.Service,
			}
			if a.SetEMode != nil {
				s = append(s, a.SetEMode.Service)
			}
			s = append(s, a.Borrow.Service, ServiceSendToken)
		}
		if k == KindOpen {
			s = append(s, ServicePositionCreated)
		}
		return s, nil

	case KindAdjustRiskDown, KindClose:
		if a.Collateralised {
			return []string{
				ServiceTakeFlashloan, ServicePullToken, ServiceSetApproval, a.Deposit.Service,
				a.Withdraw.Service, ServiceSwap, ServiceSetApproval, a.Payback.Service,
				a.Withdraw.Service, ServiceUnwrapEth, ServiceReturnFunds, ServiceReturnFunds,
			}, nil
		}
		return []string{
			ServiceTakeFlashloan, ServicePullToken, ServiceSetApproval, a.Payback.Service,
			a.Withdraw.Service, ServiceSwap, ServiceSendToken, ServiceUnwrapEth,
			ServiceReturnFunds, ServiceReturnFunds,
		}, nil

	case KindDepositBorrow:
		return []string{
			ServicePullToken, ServiceWrapEth, ServiceSetApproval, a.Deposit.Service,
			a.Borrow.Service, ServiceUnwrapEth, ServiceReturnFunds,
		}, nil

	case KindPaybackWithdraw:
		return []string{
			ServicePullToken, ServiceWrapEth, ServiceSetApproval, a.Payback.Service,
			a.Withdraw.Service, ServiceUnwrapEth, ServiceReturnFunds,
		}, nil
	}
	return nil, apperror.Validation(apperror.CodeInvalidInput, fmt.Sprintf("unknown operation kind %s", k))
}

// Definitions maps operation names to the target hashes the executor expects.
type Definitions struct {
	layouts map[string][]common.Hash
}

// DefaultDefinitions registers every protocol and kind.
func DefaultDefinitions() *Definitions {
	defs := &Definitions{layouts: make(map[string][]common.Hash)}
	for _, p := range protocolDomain.Protocols {
		for _, k := range kinds {
			services, err := Layout(p, k)
			if err != nil {
				continue
			}
			hashes := make([]common.Hash, len(services))
			for i, s := range services {
				hashes[i] = ServiceHash(s)
			}
			defs.layouts[OperationName(p, k)] = hashes
		}
	}
	return defs
}

// Names returns the registered operation names.
func (d *Definitions) Names() []string {
	names := make([]string, 0, len(d.layouts))
	for n := range d.layouts {
		names = append(names, n)
	}
	return names
}

// Check verifies that op matches its registered layout call for call, skipped calls included.
func (d *Definitions) Check(op Operation) error {
	want, ok := d.layouts[op.Name]
	if !ok {
		return apperror.New(apperror.CodeOperationDefinitionMismatch,
			apperror.WithContext(fmt.Sprintf("operation %s is not registered", op.Name)))
	}
	got := Flatten(op.Calls)
	if len(got) != len(want) {
		return apperror.New(apperror.CodeOperationDefinitionMismatch,
			apperror.WithContext(fmt.Sprintf("%s: %d calls, definition has %d", op.Name, len(got), len(want))))
	}
	for i := range want {
		if got[i].TargetHash != want[i] {
			return apperror.New(apperror.CodeOperationDefinitionMismatch,
				apperror.WithContext(fmt.Sprintf("%s: call %d is %s", op.Name, i, got[i].ServiceName)))
		}
	}
	return nil
}
